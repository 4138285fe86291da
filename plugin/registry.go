package plugin

import (
	"context"
	"log/slog"

	"github.com/praetorhq/praetor/audit"
)

// Named entry types pair a hook with the plugin name for logging.

type sessionResolvedEntry struct {
	name string
	hook SessionResolved
}
type decisionMadeEntry struct {
	name string
	hook DecisionMade
}
type accessRecordedEntry struct {
	name string
	hook AccessRecorded
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	sessionResolved []sessionResolvedEntry
	decisionMade    []decisionMadeEntry
	accessRecorded  []accessRecordedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(SessionResolved); ok {
		r.sessionResolved = append(r.sessionResolved, sessionResolvedEntry{name, h})
	}
	if h, ok := p.(DecisionMade); ok {
		r.decisionMade = append(r.decisionMade, decisionMadeEntry{name, h})
	}
	if h, ok := p.(AccessRecorded); ok {
		r.accessRecorded = append(r.accessRecorded, accessRecordedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitSessionResolved notifies all plugins that implement SessionResolved.
func (r *Registry) EmitSessionResolved(ctx context.Context, actor any) {
	for _, e := range r.sessionResolved {
		if err := e.hook.OnSessionResolved(ctx, actor); err != nil {
			r.logHookError("OnSessionResolved", e.name, err)
		}
	}
}

// EmitDecisionMade notifies all plugins that implement DecisionMade.
func (r *Registry) EmitDecisionMade(ctx context.Context, actor any, permissionCode string, decision any) {
	for _, e := range r.decisionMade {
		if err := e.hook.OnDecisionMade(ctx, actor, permissionCode, decision); err != nil {
			r.logHookError("OnDecisionMade", e.name, err)
		}
	}
}

// EmitAccessRecorded notifies all plugins that implement AccessRecorded.
func (r *Registry) EmitAccessRecorded(ctx context.Context, entry *audit.Entry) {
	for _, e := range r.accessRecorded {
		if err := e.hook.OnAccessRecorded(ctx, entry); err != nil {
			r.logHookError("OnAccessRecorded", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
