package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/praetorhq/praetor/id"
)

type captureStore struct {
	Store
	entries []*Entry
	err     error
}

func (s *captureStore) CreateAuditEntry(_ context.Context, e *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestRecordFillsDefaults(t *testing.T) {
	store := &captureStore{}
	r := NewRecorder(store, slog.Default())

	r.Record(context.Background(), &Entry{
		UserID:  id.NewUserID(),
		Action:  "authorize",
		Outcome: OutcomeDenied,
	})

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.ID.IsNil() {
		t.Error("expected generated audit ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRecordKeepsExplicitFields(t *testing.T) {
	store := &captureStore{}
	r := NewRecorder(store, slog.Default())

	auditID := id.NewAuditID()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), &Entry{
		ID:        auditID,
		UserID:    id.NewUserID(),
		Action:    "access",
		Outcome:   OutcomeSuccess,
		CreatedAt: at,
	})

	e := store.entries[0]
	if e.ID.String() != auditID.String() {
		t.Errorf("ID overwritten: %q", e.ID.String())
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt overwritten: %v", e.CreatedAt)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &captureStore{err: errors.New("disk full")}
	r := NewRecorder(store, slog.Default())

	// Must neither panic nor surface the error.
	r.Record(context.Background(), &Entry{
		UserID:  id.NewUserID(),
		Action:  "authorize",
		Outcome: OutcomeDenied,
	})

	if len(store.entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(store.entries))
	}
}
