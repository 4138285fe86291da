package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/user"
)

func marshalJSONText(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ──────────────────────────────────────────────────
// User and group models
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:praetor_users"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Email           string    `grove:"email,notnull"`
	Active          bool      `grove:"active,notnull"`
	Attributes      string    `grove:"attributes"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func userToModel(u *user.User) (*userModel, error) {
	attrs, err := json.Marshal(u.Attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal user attributes: %w", err)
	}
	return &userModel{
		ID:         u.ID.String(),
		Name:       u.Name,
		Email:      u.Email,
		Active:     u.Active,
		Attributes: string(attrs),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}, nil
}

func userFromModel(m *userModel) (*user.User, error) {
	uid, _ := id.ParseUserID(m.ID) //nolint:errcheck // stored IDs are always valid
	var attrs map[string]any
	if m.Attributes != "" && m.Attributes != "null" {
		if err := json.Unmarshal([]byte(m.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("unmarshal user attributes: %w", err)
		}
	}
	return &user.User{
		ID:         uid,
		Name:       m.Name,
		Email:      m.Email,
		Active:     m.Active,
		Attributes: attrs,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

type groupModel struct {
	grove.BaseModel `grove:"table:praetor_groups"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func groupToModel(g *user.Group) *groupModel {
	return &groupModel{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

type groupMemberModel struct {
	grove.BaseModel `grove:"table:praetor_group_members"`
	GroupID         string `grove:"group_id,pk"`
	UserID          string `grove:"user_id,pk"`
}

// ──────────────────────────────────────────────────
// Session model
// ──────────────────────────────────────────────────

type sessionModel struct {
	grove.BaseModel `grove:"table:praetor_sessions"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	Token           string    `grove:"token,notnull"`
	IP              string    `grove:"ip"`
	UserAgent       string    `grove:"user_agent"`
	Active          bool      `grove:"active,notnull"`
	ImpersonatedBy  *string   `grove:"impersonated_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	ExpiresAt       time.Time `grove:"expires_at,notnull"`
}

func sessionToModel(s *session.Session) *sessionModel {
	m := &sessionModel{
		ID:        s.ID.String(),
		UserID:    s.UserID.String(),
		Token:     s.Token,
		IP:        s.IP,
		UserAgent: s.UserAgent,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
	if s.ImpersonatedBy != nil {
		v := s.ImpersonatedBy.String()
		m.ImpersonatedBy = &v
	}
	return m
}

func sessionFromModel(m *sessionModel) *session.Session {
	sid, _ := id.ParseSessionID(m.ID) //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseUserID(m.UserID)
	s := &session.Session{
		ID:        sid,
		UserID:    uid,
		Token:     m.Token,
		IP:        m.IP,
		UserAgent: m.UserAgent,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
	if m.ImpersonatedBy != nil {
		if iid, err := id.ParseUserID(*m.ImpersonatedBy); err == nil {
			s.ImpersonatedBy = &iid
		}
	}
	return s
}

// ──────────────────────────────────────────────────
// Role models
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:praetor_roles"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:          rid,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type membershipModel struct {
	grove.BaseModel `grove:"table:praetor_role_members"`
	UserID          string     `grove:"user_id,pk"`
	RoleID          string     `grove:"role_id,pk"`
	Active          bool       `grove:"active,notnull"`
	StartsAt        *time.Time `grove:"starts_at"`
	EndsAt          *time.Time `grove:"ends_at"`
	GrantedBy       string     `grove:"granted_by"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func membershipToModel(m *role.Membership) *membershipModel {
	return &membershipModel{
		UserID:    m.UserID.String(),
		RoleID:    m.RoleID.String(),
		Active:    m.Active,
		StartsAt:  m.StartsAt,
		EndsAt:    m.EndsAt,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:praetor_role_permissions"`
	RoleID          string `grove:"role_id,pk"`
	PermissionID    string `grove:"permission_id,pk"`
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:praetor_permissions"`
	ID              string    `grove:"id,pk"`
	Code            string    `grove:"code,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:          p.ID.String(),
		Code:        p.Code,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:          pid,
		Code:        m.Code,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// ACL model
// ──────────────────────────────────────────────────

type aclEntryModel struct {
	grove.BaseModel `grove:"table:praetor_acl_entries"`
	ID              string     `grove:"id,pk"`
	UserID          string     `grove:"user_id,notnull"`
	PermissionID    string     `grove:"permission_id,notnull"`
	Effect          string     `grove:"effect,notnull"`
	Active          bool       `grove:"active,notnull"`
	EndsAt          *time.Time `grove:"ends_at"`
	GrantedBy       string     `grove:"granted_by"`
	Reason          string     `grove:"reason"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func aclToModel(e *acl.Entry) *aclEntryModel {
	return &aclEntryModel{
		ID:           e.ID.String(),
		UserID:       e.UserID.String(),
		PermissionID: e.PermissionID.String(),
		Effect:       string(e.Effect),
		Active:       e.Active,
		EndsAt:       e.EndsAt,
		GrantedBy:    e.GrantedBy,
		Reason:       e.Reason,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func aclFromModel(m *aclEntryModel) *acl.Entry {
	eid, _ := id.ParseACLEntryID(m.ID) //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseUserID(m.UserID)
	pid, _ := id.ParsePermissionID(m.PermissionID)
	return &acl.Entry{
		ID:           eid,
		UserID:       uid,
		PermissionID: pid,
		Effect:       acl.Effect(m.Effect),
		Active:       m.Active,
		EndsAt:       m.EndsAt,
		GrantedBy:    m.GrantedBy,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Policy model
// ──────────────────────────────────────────────────

type policyModel struct {
	grove.BaseModel `grove:"table:praetor_policies"`
	ID              string    `grove:"id,pk"`
	PermissionCode  string    `grove:"permission_code,notnull"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	Effect          string    `grove:"effect,notnull"`
	Priority        int       `grove:"priority,notnull"`
	IsActive        bool      `grove:"is_active,notnull"`
	Conditions      string    `grove:"conditions"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func policyToModel(p *policy.Policy) (*policyModel, error) {
	conds, err := json.Marshal(policy.ConditionDoc(p.Conditions))
	if err != nil {
		return nil, fmt.Errorf("marshal policy conditions: %w", err)
	}
	return &policyModel{
		ID:             p.ID.String(),
		PermissionCode: p.PermissionCode,
		Name:           p.Name,
		Description:    p.Description,
		Effect:         string(p.Effect),
		Priority:       p.Priority,
		IsActive:       p.IsActive,
		Conditions:     string(conds),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func policyFromModel(m *policyModel) (*policy.Policy, error) {
	pid, _ := id.ParsePolicyID(m.ID) //nolint:errcheck // stored IDs are always valid
	var doc map[string]any
	if m.Conditions != "" && m.Conditions != "null" {
		if err := json.Unmarshal([]byte(m.Conditions), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal policy conditions: %w", err)
		}
	}
	return &policy.Policy{
		ID:             pid,
		PermissionCode: m.PermissionCode,
		Name:           m.Name,
		Description:    m.Description,
		Effect:         policy.Effect(m.Effect),
		Priority:       m.Priority,
		IsActive:       m.IsActive,
		Conditions:     policy.ParseConditionDoc(doc),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:praetor_audit_log"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	SessionID       string    `grove:"session_id"`
	Action          string    `grove:"action,notnull"`
	Permission      string    `grove:"permission"`
	Resource        string    `grove:"resource"`
	Outcome         string    `grove:"outcome,notnull"`
	IP              string    `grove:"ip"`
	UserAgent       string    `grove:"user_agent"`
	ImpersonatedBy  *string   `grove:"impersonated_by"`
	Details         string    `grove:"details"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) (*auditModel, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	m := &auditModel{
		ID:         e.ID.String(),
		UserID:     e.UserID.String(),
		SessionID:  e.SessionID.String(),
		Action:     e.Action,
		Permission: e.Permission,
		Resource:   e.Resource,
		Outcome:    string(e.Outcome),
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		Details:    string(details),
		CreatedAt:  e.CreatedAt,
	}
	if e.ImpersonatedBy != nil {
		v := e.ImpersonatedBy.String()
		m.ImpersonatedBy = &v
	}
	return m, nil
}

func auditFromModel(m *auditModel) (*audit.Entry, error) {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseUserID(m.UserID)
	var details map[string]any
	if m.Details != "" && m.Details != "null" {
		if err := json.Unmarshal([]byte(m.Details), &details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}
	e := &audit.Entry{
		ID:         aid,
		UserID:     uid,
		Action:     m.Action,
		Permission: m.Permission,
		Resource:   m.Resource,
		Outcome:    audit.Outcome(m.Outcome),
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		Details:    details,
		CreatedAt:  m.CreatedAt,
	}
	if m.SessionID != "" {
		if sid, err := id.ParseSessionID(m.SessionID); err == nil {
			e.SessionID = sid
		}
	}
	if m.ImpersonatedBy != nil {
		if iid, err := id.ParseUserID(*m.ImpersonatedBy); err == nil {
			e.ImpersonatedBy = &iid
		}
	}
	return e, nil
}
