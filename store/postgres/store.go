// Package postgres provides a PostgreSQL implementation of the composite
// store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/store"
	"github.com/praetorhq/praetor/user"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("praetor: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("praetor: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Session operations
// ──────────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	m := sessionToModel(sess)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByToken(ctx context.Context, token string, asOf time.Time) (*session.Session, error) {
	m := new(sessionModel)
	err := s.pgdb.NewSelect(m).
		Where("token = ?", token).
		Where("active = ?", true).
		Where("expires_at > ?", asOf).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get session by token: %w", err)
	}
	return sessionFromModel(m), nil
}

func (s *Store) InvalidateSession(ctx context.Context, sessionID id.SessionID) error {
	m := new(sessionModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", sessionID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("praetor: invalidate session: %w", err)
	}
	m.Active = false
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("praetor: invalidate session: %w", err)
	}
	return nil
}

func (s *Store) InvalidateUserSessions(ctx context.Context, userID id.UserID) (int64, error) {
	var models []sessionModel
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor: invalidate user sessions: %w", err)
	}
	var n int64
	for i := range models {
		models[i].Active = false
		if _, err := s.pgdb.NewUpdate(&models[i]).WherePK().Exec(ctx); err != nil {
			return n, fmt.Errorf("praetor: invalidate user sessions: %w", err)
		}
		n++
	}
	return n, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*sessionModel)(nil)).
		Where("expires_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor: delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("praetor: delete expired sessions rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// User and group operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	m := userToModel(u)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get user: %w", err)
	}
	return userFromModel(m), nil
}

func (s *Store) SetUserActive(ctx context.Context, userID id.UserID, active bool) error {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("praetor: set user active: %w", err)
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("praetor: set user active: %w", err)
	}
	return nil
}

func (s *Store) UpdateUserAttributes(ctx context.Context, userID id.UserID, attrs map[string]any) error {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", userID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("praetor: update user attributes: %w", err)
	}
	m.Attributes = attrs
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("praetor: update user attributes: %w", err)
	}
	return nil
}

func (s *Store) GetAttributeProfile(ctx context.Context, userID id.UserID, asOf time.Time) (*user.AttributeProfile, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	roles, err := s.ListActiveRoleNames(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}

	var groups []groupModel
	err = s.pgdb.NewSelect(&groups).
		Join("JOIN", "praetor_group_members AS gm", "gm.group_id = praetor_groups.id").
		Where("gm.user_id = ?", userID.String()).
		OrderExpr("praetor_groups.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: get attribute profile: %w", err)
	}
	groupNames := make([]string, 0, len(groups))
	for _, g := range groups {
		groupNames = append(groupNames, g.Name)
	}

	return &user.AttributeProfile{
		Attributes: u.Attributes,
		Roles:      roles,
		Groups:     groupNames,
	}, nil
}

func (s *Store) CreateGroup(ctx context.Context, g *user.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m := groupToModel(g)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create group: %w", err)
	}
	return nil
}

func (s *Store) AddGroupMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	// Replace semantics keep the operation idempotent.
	_, err := s.pgdb.NewDelete((*groupMemberModel)(nil)).
		Where("group_id = ?", groupID.String()).
		Where("user_id = ?", userID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: add group member: %w", err)
	}
	m := &groupMemberModel{GroupID: groupID.String(), UserID: userID.String()}
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: add group member: %w", err)
	}
	return nil
}

func (s *Store) RemoveGroupMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	_, err := s.pgdb.NewDelete((*groupMemberModel)(nil)).
		Where("group_id = ?", groupID.String()).
		Where("user_id = ?", userID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: remove group member: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	m := roleToModel(r)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) ListRoles(ctx context.Context, filter role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("name ASC")
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor: list roles: %w", err)
	}
	out := make([]*role.Role, 0, len(models))
	for i := range models {
		out = append(out, roleFromModel(&models[i]))
	}
	return out, nil
}

func (s *Store) AssignRole(ctx context.Context, m *role.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	// Replace any previous membership for the pair.
	_, err := s.pgdb.NewDelete((*membershipModel)(nil)).
		Where("user_id = ?", m.UserID.String()).
		Where("role_id = ?", m.RoleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: assign role: %w", err)
	}
	if _, err := s.pgdb.NewInsert(membershipToModel(m)).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: assign role: %w", err)
	}
	return nil
}

func (s *Store) RevokeRole(ctx context.Context, userID id.UserID, roleID id.RoleID) error {
	_, err := s.pgdb.NewDelete((*membershipModel)(nil)).
		Where("user_id = ?", userID.String()).
		Where("role_id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: revoke role: %w", err)
	}
	return nil
}

func (s *Store) ListActiveRoleNames(ctx context.Context, userID id.UserID, asOf time.Time) ([]string, error) {
	var models []roleModel
	err := s.pgdb.NewSelect(&models).
		Join("JOIN", "praetor_role_members AS rm", "rm.role_id = praetor_roles.id").
		Where("rm.user_id = ?", userID.String()).
		Where("rm.active = ?", true).
		Where("(rm.starts_at IS NULL OR rm.starts_at <= ?)", asOf).
		Where("(rm.ends_at IS NULL OR rm.ends_at >= ?)", asOf).
		OrderExpr("praetor_roles.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: list active role names: %w", err)
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (s *Store) GrantPermission(ctx context.Context, roleID id.RoleID, permissionID id.PermissionID) error {
	_, err := s.pgdb.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Where("permission_id = ?", permissionID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: grant permission: %w", err)
	}
	m := &rolePermissionModel{RoleID: roleID.String(), PermissionID: permissionID.String()}
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: grant permission: %w", err)
	}
	return nil
}

func (s *Store) RevokePermission(ctx context.Context, roleID id.RoleID, permissionID id.PermissionID) error {
	_, err := s.pgdb.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Where("permission_id = ?", permissionID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: revoke permission: %w", err)
	}
	return nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	err := s.pgdb.NewSelect(&models).
		Where("role_id = ?", roleID.String()).
		OrderExpr("permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: list role permissions: %w", err)
	}
	out := make([]id.PermissionID, 0, len(models))
	for _, m := range models {
		pid, err := id.ParsePermissionID(m.PermissionID)
		if err != nil {
			continue
		}
		out = append(out, pid)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m := permissionToModel(p)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permissionID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", permissionID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get permission: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissionByCode(ctx context.Context, code string) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).Where("code = ?", code).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get permission by code: %w", err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) ListPermissions(ctx context.Context, filter permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.pgdb.NewSelect(&models).OrderExpr("code ASC")
	if filter.Search != "" {
		q = q.Where("LOWER(code) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor: list permissions: %w", err)
	}
	out := make([]*permission.Permission, 0, len(models))
	for i := range models {
		out = append(out, permissionFromModel(&models[i]))
	}
	return out, nil
}

func (s *Store) GetEffectiveGrant(ctx context.Context, userID id.UserID, code string, asOf time.Time) (*permission.Grant, error) {
	// Role grants carry the role's name as origin and win over ACL allows.
	var roles []roleModel
	err := s.pgdb.NewSelect(&roles).
		Join("JOIN", "praetor_role_members AS rm", "rm.role_id = praetor_roles.id").
		Join("JOIN", "praetor_role_permissions AS rp", "rp.role_id = praetor_roles.id").
		Join("JOIN", "praetor_permissions AS p", "p.id = rp.permission_id").
		Where("rm.user_id = ?", userID.String()).
		Where("rm.active = ?", true).
		Where("(rm.starts_at IS NULL OR rm.starts_at <= ?)", asOf).
		Where("(rm.ends_at IS NULL OR rm.ends_at >= ?)", asOf).
		Where("p.code = ?", code).
		OrderExpr("praetor_roles.name ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: get effective grant: %w", err)
	}
	if len(roles) > 0 {
		return &permission.Grant{UserID: userID, PermissionCode: code, Origin: roles[0].Name}, nil
	}

	var entries []aclEntryModel
	err = s.pgdb.NewSelect(&entries).
		Join("JOIN", "praetor_permissions AS p", "p.id = praetor_acl_entries.permission_id").
		Where("praetor_acl_entries.user_id = ?", userID.String()).
		Where("praetor_acl_entries.effect = ?", string(acl.EffectAllow)).
		Where("praetor_acl_entries.active = ?", true).
		Where("(praetor_acl_entries.ends_at IS NULL OR praetor_acl_entries.ends_at::date >= ?::date)", asOf).
		Where("p.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: get effective grant: %w", err)
	}
	if len(entries) > 0 {
		return &permission.Grant{UserID: userID, PermissionCode: code, Origin: permission.OriginACL}, nil
	}
	return nil, nil
}

func (s *Store) ListEffectiveGrants(ctx context.Context, userID id.UserID, asOf time.Time) ([]*permission.Grant, error) {
	origins := make(map[string]string)

	var roles []roleModel
	err := s.pgdb.NewSelect(&roles).
		Join("JOIN", "praetor_role_members AS rm", "rm.role_id = praetor_roles.id").
		Where("rm.user_id = ?", userID.String()).
		Where("rm.active = ?", true).
		Where("(rm.starts_at IS NULL OR rm.starts_at <= ?)", asOf).
		Where("(rm.ends_at IS NULL OR rm.ends_at >= ?)", asOf).
		OrderExpr("praetor_roles.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: list effective grants: %w", err)
	}
	for _, r := range roles {
		var perms []permissionModel
		err := s.pgdb.NewSelect(&perms).
			Join("JOIN", "praetor_role_permissions AS rp", "rp.permission_id = praetor_permissions.id").
			Where("rp.role_id = ?", r.ID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("praetor: list effective grants: %w", err)
		}
		for _, p := range perms {
			// Roles iterate in name order, so the first writer is the
			// lexically smallest granting role.
			if _, seen := origins[p.Code]; !seen {
				origins[p.Code] = r.Name
			}
		}
	}

	var allows []permissionModel
	err = s.pgdb.NewSelect(&allows).
		Join("JOIN", "praetor_acl_entries AS a", "a.permission_id = praetor_permissions.id").
		Where("a.user_id = ?", userID.String()).
		Where("a.effect = ?", string(acl.EffectAllow)).
		Where("a.active = ?", true).
		Where("(a.ends_at IS NULL OR a.ends_at::date >= ?::date)", asOf).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("praetor: list effective grants: %w", err)
	}
	for _, p := range allows {
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

// ──────────────────────────────────────────────────
// ACL operations
// ──────────────────────────────────────────────────

func (s *Store) CreateEntry(ctx context.Context, e *acl.Entry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	m := aclToModel(e)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create acl entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.ACLEntryID) (*acl.Entry, error) {
	m := new(aclEntryModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get acl entry: %w", err)
	}
	return aclFromModel(m), nil
}

func (s *Store) SetEntryActive(ctx context.Context, entryID id.ACLEntryID, active bool) error {
	m := new(aclEntryModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("praetor: set acl entry active: %w", err)
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("praetor: set acl entry active: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.ACLEntryID) error {
	_, err := s.pgdb.NewDelete((*aclEntryModel)(nil)).
		Where("id = ?", entryID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: delete acl entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, filter acl.ListFilter) ([]*acl.Entry, error) {
	var models []aclEntryModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter.UserID != nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.PermissionID != nil {
		q = q.Where("permission_id = ?", filter.PermissionID.String())
	}
	if filter.Effect != "" {
		q = q.Where("effect = ?", string(filter.Effect))
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor: list acl entries: %w", err)
	}
	out := make([]*acl.Entry, 0, len(models))
	for i := range models {
		out = append(out, aclFromModel(&models[i]))
	}
	return out, nil
}

func (s *Store) HasActiveDeny(ctx context.Context, userID id.UserID, permissionCode string, asOf time.Time) (bool, error) {
	var entries []aclEntryModel
	err := s.pgdb.NewSelect(&entries).
		Join("JOIN", "praetor_permissions AS p", "p.id = praetor_acl_entries.permission_id").
		Where("praetor_acl_entries.user_id = ?", userID.String()).
		Where("praetor_acl_entries.effect = ?", string(acl.EffectDeny)).
		Where("praetor_acl_entries.active = ?", true).
		Where("(praetor_acl_entries.ends_at IS NULL OR praetor_acl_entries.ends_at::date >= ?::date)", asOf).
		Where("p.code = ?", permissionCode).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return false, fmt.Errorf("praetor: has active deny: %w", err)
	}
	return len(entries) > 0, nil
}

// ──────────────────────────────────────────────────
// Policy operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePolicy(ctx context.Context, p *policy.Policy) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	m := policyToModel(p)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, policyID id.PolicyID) (*policy.Policy, error) {
	m := new(policyModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", policyID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get policy: %w", err)
	}
	return policyFromModel(m), nil
}

func (s *Store) UpdatePolicy(ctx context.Context, p *policy.Policy) error {
	p.UpdatedAt = time.Now().UTC()
	m := policyToModel(p)
	if _, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("praetor: update policy: %w", err)
	}
	return nil
}

func (s *Store) DeletePolicy(ctx context.Context, policyID id.PolicyID) error {
	_, err := s.pgdb.NewDelete((*policyModel)(nil)).
		Where("id = ?", policyID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("praetor: delete policy: %w", err)
	}
	return nil
}

func (s *Store) ListPolicies(ctx context.Context, filter policy.ListFilter) ([]*policy.Policy, error) {
	var models []policyModel
	q := s.pgdb.NewSelect(&models).OrderExpr("priority DESC, name ASC")
	if filter.PermissionCode != "" {
		q = q.Where("permission_code = ?", filter.PermissionCode)
	}
	if filter.Effect != "" {
		q = q.Where("effect = ?", string(filter.Effect))
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor: list policies: %w", err)
	}
	out := make([]*policy.Policy, 0, len(models))
	for i := range models {
		out = append(out, policyFromModel(&models[i]))
	}
	return out, nil
}

func (s *Store) CountPolicies(ctx context.Context, filter policy.ListFilter) (int, error) {
	q := s.pgdb.NewSelect((*policyModel)(nil))
	if filter.PermissionCode != "" {
		q = q.Where("permission_code = ?", filter.PermissionCode)
	}
	if filter.Effect != "" {
		q = q.Where("effect = ?", string(filter.Effect))
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor: count policies: %w", err)
	}
	return int(count), nil
}

func (s *Store) ListActiveForPermission(ctx context.Context, permissionCode string) ([]*policy.Policy, error) {
	active := true
	return s.ListPolicies(ctx, policy.ListFilter{
		PermissionCode: permissionCode,
		IsActive:       &active,
	})
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := auditToModel(e)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, auditID id.AuditID) (*audit.Entry, error) {
	m := new(auditModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", auditID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor: get audit entry: %w", err)
	}
	return auditFromModel(m), nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter.UserID != nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Permission != "" {
		q = q.Where("permission = ?", filter.Permission)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", string(filter.Outcome))
	}
	if filter.After != nil {
		q = q.Where("created_at >= ?", *filter.After)
	}
	if filter.Before != nil {
		q = q.Where("created_at < ?", *filter.Before)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor: list audit entries: %w", err)
	}
	out := make([]*audit.Entry, 0, len(models))
	for i := range models {
		out = append(out, auditFromModel(&models[i]))
	}
	return out, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter audit.QueryFilter) (int, error) {
	q := s.pgdb.NewSelect((*auditModel)(nil))
	if filter.UserID != nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Permission != "" {
		q = q.Where("permission = ?", filter.Permission)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", string(filter.Outcome))
	}
	if filter.After != nil {
		q = q.Where("created_at >= ?", *filter.After)
	}
	if filter.Before != nil {
		q = q.Where("created_at < ?", *filter.Before)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor: count audit entries: %w", err)
	}
	return int(count), nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("praetor: purge audit entries rows: %w", err)
	}
	return n, nil
}
