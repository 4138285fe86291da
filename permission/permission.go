// Package permission defines the Permission entity, the effective-grant
// view, and the permission store interface.
package permission

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// OriginACL is the provenance label for grants that come from a direct ACL
// allow entry rather than a role.
const OriginACL = "ACL"

// Permission is a named capability, identified by a stable dotted code such
// as "reports.read".
type Permission struct {
	ID          id.PermissionID `json:"id" db:"id"`
	Code        string          `json:"code" db:"code"`
	Description string          `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Grant is one row of the effective-permission view: a permission a user
// holds right now, with the source it came from. Origin is the granting
// role's name, or OriginACL for a direct allow entry.
type Grant struct {
	UserID         id.UserID `json:"user_id"`
	PermissionCode string    `json:"permission_code"`
	Origin         string    `json:"origin"`
}

// ListFilter narrows permission listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
