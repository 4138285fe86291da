package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
)

type auditModel struct {
	grove.BaseModel `grove:"table:praetor_audit_log"`
	ID              string         `grove:"id,pk"           bson:"_id"`
	UserID          string         `grove:"user_id"         bson:"user_id"`
	SessionID       string         `grove:"session_id"      bson:"session_id"`
	Action          string         `grove:"action"          bson:"action"`
	Permission      string         `grove:"permission"      bson:"permission"`
	Resource        string         `grove:"resource"        bson:"resource"`
	Outcome         string         `grove:"outcome"         bson:"outcome"`
	IP              string         `grove:"ip"              bson:"ip"`
	UserAgent       string         `grove:"user_agent"      bson:"user_agent"`
	ImpersonatedBy  *string        `grove:"impersonated_by" bson:"impersonated_by,omitempty"`
	Details         map[string]any `grove:"details"         bson:"details,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"      bson:"created_at"`
}

func auditToModel(e *audit.Entry) *auditModel {
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
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
	if e.ImpersonatedBy != nil {
		v := e.ImpersonatedBy.String()
		m.ImpersonatedBy = &v
	}
	return m
}

func auditFromModel(m *auditModel) *audit.Entry {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseUserID(m.UserID)
	e := &audit.Entry{
		ID:         aid,
		UserID:     uid,
		Action:     m.Action,
		Permission: m.Permission,
		Resource:   m.Resource,
		Outcome:    audit.Outcome(m.Outcome),
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		Details:    m.Details,
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
	return e
}
