package praetor

import (
	"log/slog"
	"time"

	"github.com/praetorhq/praetor/plugin"
	"github.com/praetorhq/praetor/store"
	"github.com/praetorhq/praetor/token"
)

// Option configures a Guard.
type Option func(*Guard)

// WithStore sets the backing store. Required.
func WithStore(s store.Store) Option {
	return func(g *Guard) {
		g.store = s
	}
}

// WithVerifier sets the credential verifier. Required.
func WithVerifier(v token.Verifier) Option {
	return func(g *Guard) {
		g.verifier = v
	}
}

// WithRecorder replaces the audit recorder. Defaults to a best-effort
// recorder backed by the store.
func WithRecorder(r AuditRecorder) Option {
	return func(g *Guard) {
		g.recorder = r
	}
}

// WithEvaluator replaces the policy evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(g *Guard) {
		g.evaluator = e
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithConfig replaces the full configuration.
func WithConfig(cfg Config) Option {
	return func(g *Guard) {
		g.config = cfg
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(g *Guard) {
		g.pluginList = append(g.pluginList, p)
	}
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}
