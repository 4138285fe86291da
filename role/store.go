package role

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for roles, memberships, and
// role-permission grants.
type Store interface {
	// CreateRole persists a new role. Role names are unique.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole returns the role, or nil when none exists.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName returns the role with the given name, or nil when none
	// exists.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// ListRoles returns roles matching the filter, ordered by name.
	ListRoles(ctx context.Context, filter ListFilter) ([]*Role, error)

	// AssignRole persists a membership. Re-assigning an existing
	// (user, role) pair replaces the previous membership row.
	AssignRole(ctx context.Context, m *Membership) error

	// RevokeRole removes a membership.
	RevokeRole(ctx context.Context, userID id.UserID, roleID id.RoleID) error

	// ListActiveRoleNames returns the names of roles whose membership
	// window covers asOf, for the given user.
	ListActiveRoleNames(ctx context.Context, userID id.UserID, asOf time.Time) ([]string, error)

	// GrantPermission attaches a permission to a role. Granting an
	// already-attached permission is a no-op.
	GrantPermission(ctx context.Context, roleID id.RoleID, permissionID id.PermissionID) error

	// RevokePermission detaches a permission from a role.
	RevokePermission(ctx context.Context, roleID id.RoleID, permissionID id.PermissionID) error

	// ListRolePermissions returns the IDs of permissions attached to a role.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error)
}
