package permission

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for permissions and the
// effective-grant view.
//
// The effective view unions two sources: permissions attached to roles whose
// membership window covers asOf, and active ACL allow entries that have not
// passed their end date. ACL deny entries are not part of this view; they
// are consulted separately and pre-empt everything here.
type Store interface {
	// CreatePermission persists a new permission. Codes are unique.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission returns the permission, or nil when none exists.
	GetPermission(ctx context.Context, permissionID id.PermissionID) (*Permission, error)

	// GetPermissionByCode returns the permission with the given code, or
	// nil when none exists.
	GetPermissionByCode(ctx context.Context, code string) (*Permission, error)

	// ListPermissions returns permissions matching the filter, ordered by
	// code.
	ListPermissions(ctx context.Context, filter ListFilter) ([]*Permission, error)

	// GetEffectiveGrant returns the grant for a single permission code, or
	// nil when the user does not hold it. When both a role and an ACL allow
	// grant the code, the role grant wins the Origin label.
	GetEffectiveGrant(ctx context.Context, userID id.UserID, code string, asOf time.Time) (*Grant, error)

	// ListEffectiveGrants returns every permission the user holds at asOf,
	// one Grant per (code, origin) pair, ordered by code.
	ListEffectiveGrants(ctx context.Context, userID id.UserID, asOf time.Time) ([]*Grant, error)
}
