// Package extension provides a Forge extension entry point for Praetor.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/praetorhq/praetor"
	"github.com/praetorhq/praetor/api"
	"github.com/praetorhq/praetor/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "praetor"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Session-backed authorization engine (RBAC, ACL overrides, ABAC policies)"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Praetor as a Forge extension.
type Extension struct {
	config     Config
	guard      *praetor.Guard
	apiHandler *api.API
	logger     *slog.Logger
	guardOpts  []praetor.Option
}

// New creates a Praetor Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Guard returns the underlying authorization guard.
func (e *Extension) Guard() *praetor.Guard { return e.guard }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the guard,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the guard in the DI container.
	if err := vessel.Provide(fapp.Container(), func() (*praetor.Guard, error) {
		return e.guard, nil
	}); err != nil {
		return fmt.Errorf("praetor: register guard in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build guard options.
	opts := make([]praetor.Option, 0, len(e.guardOpts)+2)
	opts = append(opts, praetor.WithLogger(logger))

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, praetor.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.guardOpts...)

	g, err := praetor.NewGuard(opts...)
	if err != nil {
		return fmt.Errorf("praetor: create guard: %w", err)
	}
	e.guard = g

	// Create API handler.
	e.apiHandler = api.New(g, fapp.Router())

	// Register HTTP routes unless disabled.
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("praetor: register routes: %w", err)
		}
	}

	return nil
}

// Start runs migrations if enabled and starts the guard.
func (e *Extension) Start(ctx context.Context) error {
	if e.guard == nil {
		return errors.New("praetor: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		s := e.guard.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("praetor: migration failed: %w", err)
			}
		}
	}

	return e.guard.Start(ctx)
}

// Stop gracefully shuts down the guard.
func (e *Extension) Stop(ctx context.Context) error {
	if e.guard == nil {
		return nil
	}
	return e.guard.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.guard == nil {
		return errors.New("praetor: extension not initialized")
	}
	s := e.guard.Store()
	if s == nil {
		return errors.New("praetor: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all praetor API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
