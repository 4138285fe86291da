package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/praetorhq/praetor/id"
)

// Recorder writes audit entries best-effort. A write failure is logged and
// swallowed; auditing must never turn a decided request into an error.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder backed by the given store. A nil logger
// falls back to slog.Default.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Record persists the entry, filling in the ID and timestamp when unset.
// Failures are logged at error level and not returned.
func (r *Recorder) Record(ctx context.Context, e *Entry) {
	if e.ID.IsNil() {
		e.ID = id.NewAuditID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if err := r.store.CreateAuditEntry(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "audit write failed",
			"audit_id", e.ID.String(),
			"user_id", e.UserID.String(),
			"action", e.Action,
			"outcome", string(e.Outcome),
			"error", err,
		)
	}
}
