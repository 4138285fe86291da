package user

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for users and groups.
type Store interface {
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, u *User) error

	// GetUser returns the user, or nil when none exists.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// SetUserActive flips a user's active flag.
	SetUserActive(ctx context.Context, userID id.UserID, active bool) error

	// UpdateUserAttributes replaces a user's stored attributes.
	UpdateUserAttributes(ctx context.Context, userID id.UserID, attrs map[string]any) error

	// GetAttributeProfile assembles the ABAC attribute profile for a user:
	// stored attributes, active validity-windowed role names, and group
	// names. Returns nil when the user does not exist.
	GetAttributeProfile(ctx context.Context, userID id.UserID, asOf time.Time) (*AttributeProfile, error)

	// CreateGroup persists a new group.
	CreateGroup(ctx context.Context, g *Group) error

	// AddGroupMember adds a user to a group. Adding an existing member is
	// a no-op.
	AddGroupMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error

	// RemoveGroupMember removes a user from a group.
	RemoveGroupMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error
}
