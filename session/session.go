// Package session defines the Session entity and its store interface.
package session

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Session is a server-side record of an issued credential. A credential is
// only honored while a matching session row is active and unexpired, so a
// logout or an administrative revocation takes effect before the signed
// token itself expires.
type Session struct {
	ID             id.SessionID `json:"id" db:"id"`
	UserID         id.UserID    `json:"user_id" db:"user_id"`
	Token          string       `json:"-" db:"token"`
	IP             string       `json:"ip,omitempty" db:"ip"`
	UserAgent      string       `json:"user_agent,omitempty" db:"user_agent"`
	Active         bool         `json:"active" db:"active"`
	ImpersonatedBy *id.UserID   `json:"impersonated_by,omitempty" db:"impersonated_by"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at" db:"expires_at"`
}

// Live reports whether the session is active and unexpired at the given time.
func (s *Session) Live(asOf time.Time) bool {
	return s.Active && s.ExpiresAt.After(asOf)
}
