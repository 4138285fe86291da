// Package memory provides an in-memory store backend. It is the reference
// implementation the engine tests run against and is suitable for tests and
// single-process tooling, not production.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/user"
)

// Store holds everything in maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	sessions        map[string]*session.Session
	sessionsByToken map[string]string

	users        map[string]*user.User
	groups       map[string]*user.Group
	groupMembers map[string]map[string]struct{}

	roles       map[string]*role.Role
	memberships map[string]*role.Membership
	rolePerms   map[string]map[string]struct{}

	permissions map[string]*permission.Permission
	permsByCode map[string]string

	aclEntries map[string]*acl.Entry
	policies   map[string]*policy.Policy
	auditLog   []*audit.Entry
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		sessions:        make(map[string]*session.Session),
		sessionsByToken: make(map[string]string),
		users:           make(map[string]*user.User),
		groups:          make(map[string]*user.Group),
		groupMembers:    make(map[string]map[string]struct{}),
		roles:           make(map[string]*role.Role),
		memberships:     make(map[string]*role.Membership),
		rolePerms:       make(map[string]map[string]struct{}),
		permissions:     make(map[string]*permission.Permission),
		permsByCode:     make(map[string]string),
		aclEntries:      make(map[string]*acl.Entry),
		policies:        make(map[string]*policy.Policy),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func membershipKey(userID id.UserID, roleID id.RoleID) string {
	return userID.String() + "|" + roleID.String()
}

// --- sessions ---

func (s *Store) CreateSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[cp.ID.String()] = &cp
	s.sessionsByToken[cp.Token] = cp.ID.String()
	return nil
}

func (s *Store) GetSessionByToken(_ context.Context, token string, asOf time.Time) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessID, ok := s.sessionsByToken[token]
	if !ok {
		return nil, nil
	}
	sess, ok := s.sessions[sessID]
	if !ok || !sess.Live(asOf) {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) InvalidateSession(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID.String()]; ok {
		sess.Active = false
	}
	return nil
}

func (s *Store) InvalidateUserSessions(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.UserID.String() == userID.String() && sess.Active {
			sess.Active = false
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, key)
			delete(s.sessionsByToken, sess.Token)
			n++
		}
	}
	return n, nil
}

// --- users and groups ---

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	cp.Attributes = cloneAttrs(u.Attributes)
	s.users[cp.ID.String()] = &cp
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.Attributes = cloneAttrs(u.Attributes)
	return &cp, nil
}

func (s *Store) SetUserActive(_ context.Context, userID id.UserID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID.String()]; ok {
		u.Active = active
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) UpdateUserAttributes(_ context.Context, userID id.UserID, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID.String()]; ok {
		u.Attributes = cloneAttrs(attrs)
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) GetAttributeProfile(_ context.Context, userID id.UserID, asOf time.Time) (*user.AttributeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, nil
	}
	return &user.AttributeProfile{
		Attributes: cloneAttrs(u.Attributes),
		Roles:      s.activeRoleNamesLocked(userID, asOf),
		Groups:     s.groupNamesLocked(userID),
	}, nil
}

func (s *Store) CreateGroup(_ context.Context, g *user.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.groups[cp.ID.String()] = &cp
	return nil
}

func (s *Store) AddGroupMember(_ context.Context, groupID id.GroupID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.groupMembers[groupID.String()]
	if !ok {
		members = make(map[string]struct{})
		s.groupMembers[groupID.String()] = members
	}
	members[userID.String()] = struct{}{}
	return nil
}

func (s *Store) RemoveGroupMember(_ context.Context, groupID id.GroupID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.groupMembers[groupID.String()]; ok {
		delete(members, userID.String())
	}
	return nil
}

func (s *Store) groupNamesLocked(userID id.UserID) []string {
	var names []string
	for groupID, members := range s.groupMembers {
		if _, ok := members[userID.String()]; !ok {
			continue
		}
		if g, ok := s.groups[groupID]; ok {
			names = append(names, g.Name)
		}
	}
	sort.Strings(names)
	return names
}

// --- roles ---

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.roles[cp.ID.String()] = &cp
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRoles(_ context.Context, filter role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*role.Role
	for _, r := range s.roles {
		if filter.Search != "" && !containsFold(r.Name, filter.Search) && !containsFold(r.Description, filter.Search) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) AssignRole(_ context.Context, m *role.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.memberships[membershipKey(cp.UserID, cp.RoleID)] = &cp
	return nil
}

func (s *Store) RevokeRole(_ context.Context, userID id.UserID, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, membershipKey(userID, roleID))
	return nil
}

func (s *Store) ListActiveRoleNames(_ context.Context, userID id.UserID, asOf time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRoleNamesLocked(userID, asOf), nil
}

func (s *Store) activeRoleNamesLocked(userID id.UserID, asOf time.Time) []string {
	var names []string
	for _, m := range s.memberships {
		if m.UserID.String() != userID.String() || !m.InWindow(asOf) {
			continue
		}
		if r, ok := s.roles[m.RoleID.String()]; ok {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Store) GrantPermission(_ context.Context, roleID id.RoleID, permissionID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms, ok := s.rolePerms[roleID.String()]
	if !ok {
		perms = make(map[string]struct{})
		s.rolePerms[roleID.String()] = perms
	}
	perms[permissionID.String()] = struct{}{}
	return nil
}

func (s *Store) RevokePermission(_ context.Context, roleID id.RoleID, permissionID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perms, ok := s.rolePerms[roleID.String()]; ok {
		delete(perms, permissionID.String())
	}
	return nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := s.rolePerms[roleID.String()]
	out := make([]id.PermissionID, 0, len(perms))
	for permID := range perms {
		parsed, err := id.ParsePermissionID(permID)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// --- permissions ---

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.permissions[cp.ID.String()] = &cp
	s.permsByCode[cp.Code] = cp.ID.String()
	return nil
}

func (s *Store) GetPermission(_ context.Context, permissionID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permissionID.String()]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetPermissionByCode(_ context.Context, code string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permID, ok := s.permsByCode[code]
	if !ok {
		return nil, nil
	}
	cp := *s.permissions[permID]
	return &cp, nil
}

func (s *Store) ListPermissions(_ context.Context, filter permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*permission.Permission
	for _, p := range s.permissions {
		if filter.Search != "" && !containsFold(p.Code, filter.Search) && !containsFold(p.Description, filter.Search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) GetEffectiveGrant(_ context.Context, userID id.UserID, code string, asOf time.Time) (*permission.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permID, ok := s.permsByCode[code]
	if !ok {
		return nil, nil
	}

	if origin, ok := s.roleOriginLocked(userID, permID, asOf); ok {
		return &permission.Grant{UserID: userID, PermissionCode: code, Origin: origin}, nil
	}
	if s.aclAllowsLocked(userID, permID, asOf) {
		return &permission.Grant{UserID: userID, PermissionCode: code, Origin: permission.OriginACL}, nil
	}
	return nil, nil
}

func (s *Store) ListEffectiveGrants(_ context.Context, userID id.UserID, asOf time.Time) ([]*permission.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	origins := make(map[string]string)

	for _, m := range s.memberships {
		if m.UserID.String() != userID.String() || !m.InWindow(asOf) {
			continue
		}
		r, ok := s.roles[m.RoleID.String()]
		if !ok {
			continue
		}
		for permID := range s.rolePerms[m.RoleID.String()] {
			p, ok := s.permissions[permID]
			if !ok {
				continue
			}
			if prev, seen := origins[p.Code]; !seen || r.Name < prev {
				origins[p.Code] = r.Name
			}
		}
	}

	for _, e := range s.aclEntries {
		if e.UserID.String() != userID.String() || e.Effect != acl.EffectAllow || !e.InEffect(asOf) {
			continue
		}
		p, ok := s.permissions[e.PermissionID.String()]
		if !ok {
			continue
		}
		if _, seen := origins[p.Code]; !seen {
			origins[p.Code] = permission.OriginACL
		}
	}

	out := make([]*permission.Grant, 0, len(origins))
	for code, origin := range origins {
		out = append(out, &permission.Grant{UserID: userID, PermissionCode: code, Origin: origin})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PermissionCode < out[j].PermissionCode })
	return out, nil
}

// roleOriginLocked returns the name of a role granting the permission in an
// active window. When several roles qualify the lexically first name wins,
// keeping results stable.
func (s *Store) roleOriginLocked(userID id.UserID, permID string, asOf time.Time) (string, bool) {
	var best string
	for _, m := range s.memberships {
		if m.UserID.String() != userID.String() || !m.InWindow(asOf) {
			continue
		}
		if _, ok := s.rolePerms[m.RoleID.String()][permID]; !ok {
			continue
		}
		r, ok := s.roles[m.RoleID.String()]
		if !ok {
			continue
		}
		if best == "" || r.Name < best {
			best = r.Name
		}
	}
	return best, best != ""
}

func (s *Store) aclAllowsLocked(userID id.UserID, permID string, asOf time.Time) bool {
	for _, e := range s.aclEntries {
		if e.UserID.String() == userID.String() &&
			e.PermissionID.String() == permID &&
			e.Effect == acl.EffectAllow &&
			e.InEffect(asOf) {
			return true
		}
	}
	return false
}

// --- acl ---

func (s *Store) CreateEntry(_ context.Context, e *acl.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.aclEntries[cp.ID.String()] = &cp
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.ACLEntryID) (*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.aclEntries[entryID.String()]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Store) SetEntryActive(_ context.Context, entryID id.ACLEntryID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.aclEntries[entryID.String()]; ok {
		e.Active = active
		e.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID id.ACLEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aclEntries, entryID.String())
	return nil
}

func (s *Store) ListEntries(_ context.Context, filter acl.ListFilter) ([]*acl.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*acl.Entry
	for _, e := range s.aclEntries {
		if filter.UserID != nil && e.UserID.String() != filter.UserID.String() {
			continue
		}
		if filter.PermissionID != nil && e.PermissionID.String() != filter.PermissionID.String() {
			continue
		}
		if filter.Effect != "" && e.Effect != filter.Effect {
			continue
		}
		if filter.Active != nil && e.Active != *filter.Active {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) HasActiveDeny(_ context.Context, userID id.UserID, permissionCode string, asOf time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permID, ok := s.permsByCode[permissionCode]
	if !ok {
		return false, nil
	}
	for _, e := range s.aclEntries {
		if e.UserID.String() == userID.String() &&
			e.PermissionID.String() == permID &&
			e.Effect == acl.EffectDeny &&
			e.InEffect(asOf) {
			return true, nil
		}
	}
	return false, nil
}

// --- policies ---

func (s *Store) CreatePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID.String()] = clonePolicy(p)
	return nil
}

func (s *Store) GetPolicy(_ context.Context, policyID id.PolicyID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[policyID.String()]
	if !ok {
		return nil, nil
	}
	return clonePolicy(p), nil
}

func (s *Store) UpdatePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[p.ID.String()]; ok {
		s.policies[p.ID.String()] = clonePolicy(p)
	}
	return nil
}

func (s *Store) DeletePolicy(_ context.Context, policyID id.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, policyID.String())
	return nil
}

func (s *Store) ListPolicies(_ context.Context, filter policy.ListFilter) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterPoliciesLocked(filter)
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) CountPolicies(_ context.Context, filter policy.ListFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filterPoliciesLocked(filter)), nil
}

func (s *Store) ListActiveForPermission(_ context.Context, permissionCode string) ([]*policy.Policy, error) {
	active := true
	return s.ListPolicies(context.Background(), policy.ListFilter{
		PermissionCode: permissionCode,
		IsActive:       &active,
	})
}

func (s *Store) filterPoliciesLocked(filter policy.ListFilter) []*policy.Policy {
	var out []*policy.Policy
	for _, p := range s.policies {
		if filter.PermissionCode != "" && p.PermissionCode != filter.PermissionCode {
			continue
		}
		if filter.Effect != "" && p.Effect != filter.Effect {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Description, filter.Search) {
			continue
		}
		out = append(out, clonePolicy(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// --- audit ---

func (s *Store) CreateAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.Details = cloneAttrs(e.Details)
	s.auditLog = append(s.auditLog, &cp)
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, auditID id.AuditID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.auditLog {
		if e.ID.String() == auditID.String() {
			cp := *e
			cp.Details = cloneAttrs(e.Details)
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterAuditLocked(filter)
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter audit.QueryFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filterAuditLocked(filter)), nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.auditLog[:0]
	var n int64
	for _, e := range s.auditLog {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.auditLog = kept
	return n, nil
}

func (s *Store) filterAuditLocked(filter audit.QueryFilter) []*audit.Entry {
	var out []*audit.Entry
	for _, e := range s.auditLog {
		if filter.UserID != nil && e.UserID.String() != filter.UserID.String() {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Permission != "" && e.Permission != filter.Permission {
			continue
		}
		if filter.Outcome != "" && e.Outcome != filter.Outcome {
			continue
		}
		if filter.After != nil && e.CreatedAt.Before(*filter.After) {
			continue
		}
		if filter.Before != nil && !e.CreatedAt.Before(*filter.Before) {
			continue
		}
		cp := *e
		cp.Details = cloneAttrs(e.Details)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// --- helpers ---

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}

func clonePolicy(p *policy.Policy) *policy.Policy {
	cp := *p
	cp.Conditions = make([]policy.Condition, len(p.Conditions))
	copy(cp.Conditions, p.Conditions)
	return &cp
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
