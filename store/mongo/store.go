// Package mongo provides a MongoDB audit archive using grove ORM. It
// implements only the audit store and is meant for long-retention audit
// trails alongside a relational primary store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
)

const colAuditLog = "praetor_audit_log"

// Compile-time interface check.
var _ audit.Store = (*Store)(nil)

// Store is a MongoDB audit archive.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB audit archive backed by grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for the audit collection.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []mongod.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := s.mdb.Collection(colAuditLog).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("praetor/mongo: migrate %s indexes: %w", colAuditLog, err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := auditToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("praetor/mongo: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, auditID id.AuditID) (*audit.Entry, error) {
	var m auditModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": auditID.String()}).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("praetor/mongo: get audit entry: %w", err)
	}
	return auditFromModel(&m), nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.mdb.NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("praetor/mongo: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter audit.QueryFilter) (int, error) {
	count, err := s.mdb.NewFind((*auditModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor/mongo: count audit entries: %w", err)
	}
	return int(count), nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("praetor/mongo: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}

func auditFilter(filter audit.QueryFilter) bson.M {
	f := bson.M{}
	if filter.UserID != nil {
		f["user_id"] = filter.UserID.String()
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Permission != "" {
		f["permission"] = filter.Permission
	}
	if filter.Outcome != "" {
		f["outcome"] = string(filter.Outcome)
	}
	if filter.After != nil || filter.Before != nil {
		dateFilter := bson.M{}
		if filter.After != nil {
			dateFilter["$gte"] = *filter.After
		}
		if filter.Before != nil {
			dateFilter["$lt"] = *filter.Before
		}
		f["created_at"] = dateFilter
	}
	return f
}
