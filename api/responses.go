package api

// IdentityResponse is the resolved identity for a verified credential.
type IdentityResponse struct {
	UserID         string `json:"user_id" description:"User ID"`
	Name           string `json:"name" description:"User display name"`
	Email          string `json:"email" description:"User email"`
	SessionID      string `json:"session_id" description:"Session ID"`
	ImpersonatedBy string `json:"impersonated_by,omitempty" description:"Impersonating user, when set"`
}

// ErrorResponse carries a machine-readable failure code.
type ErrorResponse struct {
	Code  string `json:"code" description:"Failure code"`
	Error string `json:"error" description:"Human-readable message"`
}

// DecisionResponse is the outcome of an authorization check.
type DecisionResponse struct {
	Allowed    bool   `json:"allowed" description:"Whether the request is allowed"`
	Code       string `json:"code" description:"Decision code"`
	Provenance string `json:"provenance,omitempty" description:"Grant source when allowed"`
	Policy     string `json:"policy,omitempty" description:"Deciding ABAC policy, when one matched"`
	Reason     string `json:"reason,omitempty" description:"Human-readable reason"`
	EvalTimeNs int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// PurgeResponse reports how many entries a purge removed.
type PurgeResponse struct {
	Removed int64 `json:"removed" description:"Number of entries removed"`
}
