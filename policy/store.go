package policy

import (
	"context"

	"github.com/praetorhq/praetor/id"
)

// Store defines persistence operations for policies.
type Store interface {
	// CreatePolicy persists a new policy. Names are unique per permission
	// code.
	CreatePolicy(ctx context.Context, p *Policy) error

	// GetPolicy returns the policy, or nil when none exists.
	GetPolicy(ctx context.Context, policyID id.PolicyID) (*Policy, error)

	// UpdatePolicy replaces a policy's mutable fields.
	UpdatePolicy(ctx context.Context, p *Policy) error

	// DeletePolicy removes a policy.
	DeletePolicy(ctx context.Context, policyID id.PolicyID) error

	// ListPolicies returns policies matching the filter, ordered by
	// priority descending then name.
	ListPolicies(ctx context.Context, filter ListFilter) ([]*Policy, error)

	// CountPolicies returns the number of policies matching the filter,
	// ignoring Limit and Offset.
	CountPolicies(ctx context.Context, filter ListFilter) (int, error)

	// ListActiveForPermission returns the active policies for a permission
	// code, ordered by priority descending. Evaluation walks this order
	// and stops at the first match.
	ListActiveForPermission(ctx context.Context, permissionCode string) ([]*Policy, error)
}
