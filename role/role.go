// Package role defines the Role entity, time-windowed role memberships, and
// the role store interface.
package role

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Role is a named bundle of permissions. The role name doubles as the
// provenance label in effective-permission views.
type Role struct {
	ID          id.RoleID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Membership assigns a role to a user for an optional validity window. A
// membership outside its window contributes nothing: no permissions, no
// role name in the ABAC context.
type Membership struct {
	UserID    id.UserID  `json:"user_id" db:"user_id"`
	RoleID    id.RoleID  `json:"role_id" db:"role_id"`
	Active    bool       `json:"active" db:"active"`
	StartsAt  *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	GrantedBy string     `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// InWindow reports whether the membership is active and its validity window
// covers the given time. A nil bound is open-ended on that side.
func (m *Membership) InWindow(asOf time.Time) bool {
	if !m.Active {
		return false
	}
	if m.StartsAt != nil && asOf.Before(*m.StartsAt) {
		return false
	}
	if m.EndsAt != nil && asOf.After(*m.EndsAt) {
		return false
	}
	return true
}

// ListFilter narrows role listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
