package praetor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/plugin"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/store"
	"github.com/praetorhq/praetor/token"
)

// AuditRecorder receives decided and completed requests. Implementations
// must never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry)
}

// Guard is the authorization engine. Construct one with NewGuard and share
// it across goroutines; all methods are safe for concurrent use.
type Guard struct {
	store      store.Store
	verifier   token.Verifier
	evaluator  Evaluator
	recorder   AuditRecorder
	logger     *slog.Logger
	config     Config
	now        func() time.Time
	plugins    *plugin.Registry
	pluginList []plugin.Plugin
}

// NewGuard builds a Guard. WithStore and WithVerifier are required.
func NewGuard(opts ...Option) (*Guard, error) {
	g := &Guard{
		evaluator: DefaultEvaluator(),
		logger:    slog.Default(),
		config:    DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store == nil {
		return nil, errors.New("praetor: store is required")
	}
	if g.verifier == nil {
		return nil, errors.New("praetor: token verifier is required")
	}
	if g.recorder == nil {
		g.recorder = audit.NewRecorder(g.store, g.logger)
	}
	g.plugins = plugin.NewRegistry(g.logger)
	for _, p := range g.pluginList {
		g.plugins.Register(p)
	}
	return g, nil
}

// Store returns the underlying composite store.
func (g *Guard) Store() store.Store {
	return g.store
}

// Start is a lifecycle hook. The Guard runs no background workers.
func (g *Guard) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown and notifies shutdown hooks.
func (g *Guard) Stop(ctx context.Context) error {
	g.plugins.EmitShutdown(ctx)
	return nil
}

// Authenticate resolves a bearer credential into an AuthContext. The
// credential must verify, match an active unexpired session, and belong to
// an active user. Identity fields come from the user row, not the token
// payload, so renames and deactivations take effect immediately.
func (g *Guard) Authenticate(ctx context.Context, credential string) (*AuthContext, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	if _, err := g.verifier.Verify(credential); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}

	sess, err := g.store.GetSessionByToken(ctx, credential, g.now())
	if err != nil {
		return nil, fmt.Errorf("praetor: session lookup: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	u, err := g.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("praetor: user lookup: %w", err)
	}
	if u == nil {
		return nil, ErrSessionNotFound
	}
	if !u.Active {
		return nil, ErrUserInactive
	}

	actor := &AuthContext{
		UserID:         u.ID,
		Name:           u.Name,
		Email:          u.Email,
		SessionID:      sess.ID,
		ImpersonatedBy: sess.ImpersonatedBy,
	}
	g.plugins.EmitSessionResolved(ctx, actor)
	return actor, nil
}

// Authorize runs the decision pipeline for a permission code. rules are
// caller-supplied ABAC inputs; policies are only consulted when rules is
// non-empty. Denials are returned as a Decision with Allowed false and
// recorded in the audit log; the error return is for infrastructure
// failures only.
func (g *Guard) Authorize(ctx context.Context, actor *AuthContext, permissionCode string, rules map[string]any, meta RequestMeta) (*Decision, error) {
	start := g.now()
	asOf := start

	denied, err := g.store.HasActiveDeny(ctx, actor.UserID, permissionCode, asOf)
	if err != nil {
		return nil, fmt.Errorf("praetor: acl check: %w", err)
	}
	if denied {
		d := &Decision{
			Code:   DecisionACLDenied,
			Reason: "explicit deny entry for " + permissionCode,
		}
		g.finish(ctx, actor, permissionCode, meta, d, start)
		return d, nil
	}

	grant, err := g.store.GetEffectiveGrant(ctx, actor.UserID, permissionCode, asOf)
	if err != nil {
		return nil, fmt.Errorf("praetor: permission lookup: %w", err)
	}
	if grant == nil {
		d := &Decision{
			Code:   DecisionPermissionDenied,
			Reason: "no role or acl entry grants " + permissionCode,
		}
		g.finish(ctx, actor, permissionCode, meta, d, start)
		return d, nil
	}

	d := &Decision{
		Allowed:    true,
		Code:       DecisionAllow,
		Provenance: grant.Origin,
	}

	if len(rules) > 0 {
		matched, evalErr := g.evaluatePolicies(ctx, actor, permissionCode, rules, meta, d)
		if evalErr != nil {
			return nil, evalErr
		}
		if !matched {
			g.finish(ctx, actor, permissionCode, meta, d, start)
			return d, nil
		}
	}

	d.EvalTimeNs = g.now().Sub(start).Nanoseconds()
	g.plugins.EmitDecisionMade(ctx, actor, permissionCode, d)
	return d, nil
}

// evaluatePolicies refines d in place. It returns false when the decision
// became a denial.
func (g *Guard) evaluatePolicies(ctx context.Context, actor *AuthContext, permissionCode string, rules map[string]any, meta RequestMeta, d *Decision) (bool, error) {
	policies, err := g.store.ListActiveForPermission(ctx, permissionCode)
	if err != nil {
		return false, fmt.Errorf("praetor: policy lookup: %w", err)
	}
	if len(policies) == 0 {
		return true, nil
	}

	profile, err := g.store.GetAttributeProfile(ctx, actor.UserID, g.now())
	if err != nil {
		return false, fmt.Errorf("praetor: attribute lookup: %w", err)
	}

	attrs := g.evaluationContext(profile, rules, meta)
	matched := g.evaluator.Evaluate(ctx, policies, attrs)
	if matched == nil {
		d.Allowed = false
		d.Code = DecisionABACDenied
		d.Provenance = ""
		d.Reason = "no policy matched for " + permissionCode
		return false, nil
	}

	d.Policy = matched.Name
	if matched.Effect == policy.EffectDeny {
		d.Allowed = false
		d.Code = DecisionABACDenied
		d.Provenance = ""
		d.Reason = "policy " + matched.Name + " denied"
		return false, nil
	}
	return true, nil
}

// Enforce is Authorize with the denial folded into the error return. It
// returns nil only when the request is allowed.
func (g *Guard) Enforce(ctx context.Context, actor *AuthContext, permissionCode string, rules map[string]any, meta RequestMeta) error {
	d, err := g.Authorize(ctx, actor, permissionCode, rules, meta)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
	}
	return nil
}

// HasRole reports whether the user currently holds any of the named roles,
// honoring membership validity windows.
func (g *Guard) HasRole(ctx context.Context, userID id.UserID, roleNames ...string) (bool, error) {
	if len(roleNames) == 0 {
		return false, nil
	}
	held, err := g.store.ListActiveRoleNames(ctx, userID, g.now())
	if err != nil {
		return false, fmt.Errorf("praetor: role lookup: %w", err)
	}
	for _, want := range roleNames {
		for _, have := range held {
			if want == have {
				return true, nil
			}
		}
	}
	return false, nil
}

// CanImpersonate reports whether the user holds the impersonation
// permission.
func (g *Guard) CanImpersonate(ctx context.Context, userID id.UserID) (bool, error) {
	grant, err := g.store.GetEffectiveGrant(ctx, userID, g.config.ImpersonationPermission, g.now())
	if err != nil {
		return false, fmt.Errorf("praetor: permission lookup: %w", err)
	}
	return grant != nil, nil
}

// RecordAccess writes a success audit entry for a completed action.
func (g *Guard) RecordAccess(ctx context.Context, actor *AuthContext, action, resource string, meta RequestMeta, details map[string]any) {
	if g.config.DisableAudit {
		return
	}
	e := &audit.Entry{
		UserID:         actor.UserID,
		SessionID:      actor.SessionID,
		Action:         action,
		Resource:       resource,
		Outcome:        audit.OutcomeSuccess,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		ImpersonatedBy: actor.ImpersonatedBy,
		Details:        details,
	}
	g.recorder.Record(ctx, e)
	g.plugins.EmitAccessRecorded(ctx, e)
}

// finish stamps the evaluation time and records a denial.
func (g *Guard) finish(ctx context.Context, actor *AuthContext, permissionCode string, meta RequestMeta, d *Decision, start time.Time) {
	d.EvalTimeNs = g.now().Sub(start).Nanoseconds()
	g.plugins.EmitDecisionMade(ctx, actor, permissionCode, d)
	if g.config.DisableAudit || d.Allowed {
		return
	}
	details := map[string]any{
		"code":   d.Code.WireCode(),
		"reason": d.Reason,
	}
	if meta.Path != "" {
		details["path"] = meta.Path
	}
	if meta.Method != "" {
		details["method"] = meta.Method
	}
	e := &audit.Entry{
		UserID:         actor.UserID,
		SessionID:      actor.SessionID,
		Action:         "authorize",
		Permission:     permissionCode,
		Outcome:        audit.OutcomeDenied,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		ImpersonatedBy: actor.ImpersonatedBy,
		Details:        details,
	}
	g.recorder.Record(ctx, e)
	g.plugins.EmitAccessRecorded(ctx, e)
}
