package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres spins up a throwaway postgres container and returns a
// connected pgx conn. Skips when no container runtime is available.
func startPostgres(t *testing.T) *pgx.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("praetor_test"),
		postgres.WithUsername("praetor"),
		postgres.WithPassword("praetor"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(ctx)
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close(ctx)
	})
	return conn
}

// The store treats ACL end dates as inclusive through the end of the day,
// using the ends_at::date >= asOf::date predicate. Verify that postgres
// agrees with the Go-side window check.
func TestACLEndDatePredicate(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	_, err := conn.Exec(ctx, `
CREATE TABLE acl_probe (
    id      TEXT PRIMARY KEY,
    ends_at TIMESTAMPTZ
)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	asOf := time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)
	rows := []struct {
		id     string
		endsAt *time.Time
		want   bool
	}{
		{"open-ended", nil, true},
		{"ends-today-midnight", ptr(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)), true},
		{"ended-yesterday", ptr(time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC)), false},
		{"ends-tomorrow", ptr(time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)), true},
	}
	for _, r := range rows {
		if _, err := conn.Exec(ctx, `INSERT INTO acl_probe (id, ends_at) VALUES ($1, $2)`, r.id, r.endsAt); err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}

	for _, r := range rows {
		var n int
		err := conn.QueryRow(ctx, `
SELECT count(*) FROM acl_probe
WHERE id = $1 AND (ends_at IS NULL OR ends_at::date >= $2::date)`, r.id, asOf).Scan(&n)
		if err != nil {
			t.Fatalf("query %s: %v", r.id, err)
		}
		if got := n > 0; got != r.want {
			t.Errorf("%s: in effect = %v, want %v", r.id, got, r.want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
