// Package praetor is an embeddable authorization core combining session
// authentication, role-based permissions, per-user ACL overrides,
// attribute-based policies, and best-effort audit recording.
//
// The central type is Guard. Authenticate resolves a bearer credential into
// an AuthContext; Authorize runs the layered decision pipeline for a
// permission code:
//
//  1. An active ACL deny entry blocks the request outright.
//  2. The effective permission set (role grants plus ACL allows) must
//     contain the code, or the request is denied.
//  3. When the caller supplies ABAC rules, active policies for the code are
//     evaluated in priority order and the first match decides; no match
//     means deny.
//
// Every denial is recorded through the audit store; audit failures are
// logged and never affect the decision.
package praetor

import (
	"github.com/praetorhq/praetor/id"
)

// AuthContext is the resolved identity of an authenticated request.
type AuthContext struct {
	UserID    id.UserID    `json:"user_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	SessionID id.SessionID `json:"session_id"`

	// ImpersonatedBy is set when the session was opened by another user
	// acting on this user's behalf.
	ImpersonatedBy *id.UserID `json:"impersonated_by,omitempty"`
}

// Impersonated reports whether the session is an impersonation session.
func (a *AuthContext) Impersonated() bool {
	return a.ImpersonatedBy != nil
}

// RequestMeta carries request-scoped details into decisions and audit
// entries.
type RequestMeta struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Path      string `json:"path,omitempty"`
	Method    string `json:"method,omitempty"`
}

// DecisionCode identifies which pipeline stage produced the outcome.
type DecisionCode string

const (
	DecisionAllow            DecisionCode = "allow"
	DecisionACLDenied        DecisionCode = "acl_denied"
	DecisionPermissionDenied DecisionCode = "permission_denied"
	DecisionABACDenied       DecisionCode = "abac_denied"
)

// Decision is the outcome of an authorization check. A denial is a valid
// Decision, not an error; Authorize reserves its error return for
// infrastructure failures.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Code    DecisionCode `json:"code"`

	// Provenance names the grant source when Allowed: the granting role's
	// name, or "ACL" for a direct allow entry.
	Provenance string `json:"provenance,omitempty"`

	// Policy names the ABAC policy that decided the outcome, when one did.
	Policy string `json:"policy,omitempty"`

	Reason     string `json:"reason,omitempty"`
	EvalTimeNs int64  `json:"eval_time_ns,omitempty"`
}
