package acl

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for ACL entries.
type Store interface {
	// CreateEntry persists a new entry. At most one entry may exist per
	// (user, permission, effect) triple.
	CreateEntry(ctx context.Context, e *Entry) error

	// GetEntry returns the entry, or nil when none exists.
	GetEntry(ctx context.Context, entryID id.ACLEntryID) (*Entry, error)

	// SetEntryActive flips an entry's active flag. Deactivating a deny
	// entry lifts the block without losing the record.
	SetEntryActive(ctx context.Context, entryID id.ACLEntryID, active bool) error

	// DeleteEntry removes an entry.
	DeleteEntry(ctx context.Context, entryID id.ACLEntryID) error

	// ListEntries returns entries matching the filter, newest first.
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)

	// HasActiveDeny reports whether an in-effect deny entry exists for the
	// user and permission code at asOf.
	HasActiveDeny(ctx context.Context, userID id.UserID, permissionCode string, asOf time.Time) (bool, error)
}
