package audit

import (
	"context"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for audit entries.
type Store interface {
	// CreateAuditEntry persists an entry.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// GetAuditEntry returns the entry, or nil when none exists.
	GetAuditEntry(ctx context.Context, auditID id.AuditID) (*Entry, error)

	// ListAuditEntries returns entries matching the filter, newest first.
	ListAuditEntries(ctx context.Context, filter QueryFilter) ([]*Entry, error)

	// CountAuditEntries returns the number of entries matching the filter,
	// ignoring Limit and Offset.
	CountAuditEntries(ctx context.Context, filter QueryFilter) (int, error)

	// PurgeAuditEntries removes entries created before the given time and
	// returns the number removed.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
