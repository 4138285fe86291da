// Package user defines the User and Group entities and their store interface.
package user

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// User is the identity an authorization decision is made for. The active
// flag is checked on every authenticated request, never cached, so a
// deactivation locks the account out immediately.
type User struct {
	ID         id.UserID      `json:"id" db:"id"`
	Name       string         `json:"name" db:"name"`
	Email      string         `json:"email" db:"email"`
	Active     bool           `json:"active" db:"active"`
	Attributes map[string]any `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// Group is an organizational grouping of users. Group names feed the ABAC
// evaluation context.
type Group struct {
	ID          id.GroupID `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// AttributeProfile is the user-side input to ABAC evaluation: the user's
// stored attributes plus the names of their currently-valid roles and the
// groups they belong to.
type AttributeProfile struct {
	Attributes map[string]any `json:"attributes"`
	Roles      []string       `json:"roles"`
	Groups     []string       `json:"groups"`
}
