package extension

import (
	"log/slog"

	"github.com/praetorhq/praetor"
	"github.com/praetorhq/praetor/plugin"
	"github.com/praetorhq/praetor/store"
	"github.com/praetorhq/praetor/token"
)

// ExtOption configures the Praetor Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.guardOpts = append(e.guardOpts, praetor.WithStore(s))
	}
}

// WithVerifier sets the credential verifier.
func WithVerifier(v token.Verifier) ExtOption {
	return func(e *Extension) {
		e.guardOpts = append(e.guardOpts, praetor.WithVerifier(v))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithGuardOptions adds guard-level options.
func WithGuardOptions(opts ...praetor.Option) ExtOption {
	return func(e *Extension) {
		e.guardOpts = append(e.guardOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(p plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.guardOpts = append(e.guardOpts, praetor.WithPlugin(p))
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
