// Package store defines the composite persistence interface a Guard runs
// against. Backends live in the memory, postgres, sqlite, and mongo
// sub-packages.
package store

import (
	"context"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/session"
	"github.com/praetorhq/praetor/user"
)

// Store is the full persistence surface. Lookups return (nil, nil) for
// absent records; errors are reserved for infrastructure failures.
type Store interface {
	session.Store
	user.Store
	role.Store
	permission.Store
	acl.Store
	policy.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
