package session

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for sessions.
type Store interface {
	// CreateSession persists a new session. At most one session may exist
	// per token (unique token column).
	CreateSession(ctx context.Context, s *Session) error

	// GetSessionByToken returns the active, unexpired session for the
	// token, or nil when none exists.
	GetSessionByToken(ctx context.Context, token string, asOf time.Time) (*Session, error)

	// InvalidateSession marks a session inactive.
	InvalidateSession(ctx context.Context, sessionID id.SessionID) error

	// InvalidateUserSessions marks all of a user's sessions inactive and
	// returns the number affected.
	InvalidateUserSessions(ctx context.Context, userID id.UserID) (int64, error)

	// DeleteExpiredSessions removes sessions that expired before the given
	// time and returns the number removed.
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
