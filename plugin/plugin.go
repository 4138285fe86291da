// Package plugin defines the plugin system for Praetor.
// Plugins are notified of lifecycle events (session resolved, decision
// made, access recorded) and can react — logging, metrics, tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/praetorhq/praetor/audit"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Authentication lifecycle hooks
// ──────────────────────────────────────────────────

// SessionResolved is called after a credential resolves to an identity.
// The actor parameter is *praetor.AuthContext (passed as any to avoid an
// import cycle).
type SessionResolved interface {
	OnSessionResolved(ctx context.Context, actor any) error
}

// ──────────────────────────────────────────────────
// Authorization lifecycle hooks
// ──────────────────────────────────────────────────

// DecisionMade is called after the decision pipeline completes, allowed
// or denied. The actor parameter is *praetor.AuthContext; decision is
// *praetor.Decision.
type DecisionMade interface {
	OnDecisionMade(ctx context.Context, actor any, permissionCode string, decision any) error
}

// ──────────────────────────────────────────────────
// Audit lifecycle hooks
// ──────────────────────────────────────────────────

// AccessRecorded is called after an audit entry is handed to the recorder.
type AccessRecorded interface {
	OnAccessRecorded(ctx context.Context, e *audit.Entry) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
