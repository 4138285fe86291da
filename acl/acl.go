// Package acl defines per-user access control entries and their store
// interface. An entry pins a single permission for a single user to an
// explicit allow or deny, overriding whatever roles would say.
package acl

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Effect is the outcome an entry forces.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether the effect is one of the two known values.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Entry is a per-user exception. A deny entry pre-empts every other grant
// source for its permission; an allow entry grants the permission directly
// with provenance "ACL". EndsAt is date-granular: the entry stays in effect
// through the end of that calendar day.
type Entry struct {
	ID           id.ACLEntryID   `json:"id" db:"id"`
	UserID       id.UserID       `json:"user_id" db:"user_id"`
	PermissionID id.PermissionID `json:"permission_id" db:"permission_id"`
	Effect       Effect          `json:"effect" db:"effect"`
	Active       bool            `json:"active" db:"active"`
	EndsAt       *time.Time      `json:"ends_at,omitempty" db:"ends_at"`
	GrantedBy    string          `json:"granted_by,omitempty" db:"granted_by"`
	Reason       string          `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// InEffect reports whether the entry applies at the given time. A nil
// EndsAt never lapses; a set EndsAt keeps the entry in effect through that
// calendar day, compared in UTC.
func (e *Entry) InEffect(asOf time.Time) bool {
	if !e.Active {
		return false
	}
	if e.EndsAt == nil {
		return true
	}
	endDay := e.EndsAt.UTC().Truncate(24 * time.Hour)
	today := asOf.UTC().Truncate(24 * time.Hour)
	return !endDay.Before(today)
}

// ListFilter narrows entry listings. Nil or zero fields match everything.
type ListFilter struct {
	UserID       *id.UserID
	PermissionID *id.PermissionID
	Effect       Effect
	Active       *bool
	Limit        int
	Offset       int
}
