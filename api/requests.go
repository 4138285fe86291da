package api

// ──────────────────────────────────────────────────
// Auth and authorization requests
// ──────────────────────────────────────────────────

// VerifyRequest is the body for resolving a credential into an identity.
type VerifyRequest struct {
	Token string `json:"token" description:"Bearer credential to verify"`
}

// CheckRequest is the body for an authorization dry-run.
type CheckRequest struct {
	UserID     string         `json:"user_id" description:"User to check"`
	Permission string         `json:"permission" description:"Permission code"`
	Rules      map[string]any `json:"rules,omitempty" description:"ABAC rules; policies are only evaluated when present"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name        string `json:"name" description:"Role name"`
	Description string `json:"description,omitempty" description:"Human-readable description"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// AttachPermissionRequest is the body for granting a permission to a role.
type AttachPermissionRequest struct {
	RoleID       string `path:"roleId" description:"Role ID"`
	PermissionID string `json:"permission_id" description:"Permission ID to grant"`
}

// DetachPermissionRequest identifies a role-permission pair to revoke.
type DetachPermissionRequest struct {
	RoleID       string `path:"roleId" description:"Role ID"`
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// AssignRoleRequest is the body for assigning a role to a user.
type AssignRoleRequest struct {
	UserID    string `path:"userId" description:"User ID"`
	RoleID    string `json:"role_id" description:"Role ID to assign"`
	StartsAt  string `json:"starts_at,omitempty" description:"Validity window start (RFC3339)"`
	EndsAt    string `json:"ends_at,omitempty" description:"Validity window end (RFC3339)"`
	GrantedBy string `json:"granted_by,omitempty" description:"Granting actor"`
}

// RevokeRoleRequest identifies a user-role pair to revoke.
type RevokeRoleRequest struct {
	UserID string `path:"userId" description:"User ID"`
	RoleID string `path:"roleId" description:"Role ID"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Code        string `json:"code" description:"Permission code (e.g. reports.generate)"`
	Description string `json:"description,omitempty" description:"Human-readable description"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Search string `query:"search" description:"Search by code"`
	Limit  int    `query:"limit" description:"Maximum results"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ListUserGrantsRequest is the path parameter for a user's effective view.
type ListUserGrantsRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ──────────────────────────────────────────────────
// ACL requests
// ──────────────────────────────────────────────────

// CreateACLEntryRequest is the body for creating an ACL entry.
type CreateACLEntryRequest struct {
	UserID       string `json:"user_id" description:"User the entry applies to"`
	PermissionID string `json:"permission_id" description:"Permission the entry covers"`
	Effect       string `json:"effect" description:"Entry effect (allow or deny)"`
	EndsAt       string `json:"ends_at,omitempty" description:"Expiry date, inclusive through end of day (RFC3339)"`
	GrantedBy    string `json:"granted_by,omitempty" description:"Granting actor"`
	Reason       string `json:"reason,omitempty" description:"Why the entry exists"`
}

// GetACLEntryRequest is the path parameter for getting an ACL entry.
type GetACLEntryRequest struct {
	EntryID string `path:"entryId" description:"ACL entry ID"`
}

// SetACLEntryActiveRequest toggles an entry without deleting it.
type SetACLEntryActiveRequest struct {
	EntryID string `path:"entryId" description:"ACL entry ID"`
	Active  bool   `json:"active" description:"New active state"`
}

// ListACLEntriesRequest holds query parameters.
type ListACLEntriesRequest struct {
	UserID       string `query:"user_id" description:"Filter by user"`
	PermissionID string `query:"permission_id" description:"Filter by permission"`
	Effect       string `query:"effect" description:"Filter by effect (allow/deny)"`
	Active       string `query:"active" description:"Filter by active state (true/false)"`
	Limit        int    `query:"limit" description:"Maximum results"`
	Offset       int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Policy requests
// ──────────────────────────────────────────────────

// CreatePolicyRequest is the body for creating an ABAC policy.
type CreatePolicyRequest struct {
	PermissionCode string         `json:"permission_code" description:"Permission the policy gates"`
	Name           string         `json:"name" description:"Policy name"`
	Description    string         `json:"description,omitempty" description:"Human-readable description"`
	Effect         string         `json:"effect" description:"Policy effect (allow or deny)"`
	Priority       int            `json:"priority,omitempty" description:"Evaluation priority, higher first"`
	IsActive       bool           `json:"is_active" description:"Whether the policy is active"`
	Conditions     map[string]any `json:"conditions,omitempty" description:"Condition document; bare values mean equality"`
}

// UpdatePolicyRequest is the body for updating a policy.
type UpdatePolicyRequest struct {
	PolicyID    string         `path:"policyId" description:"Policy ID"`
	Name        string         `json:"name,omitempty" description:"Policy name"`
	Description string         `json:"description,omitempty" description:"Description"`
	Effect      string         `json:"effect,omitempty" description:"Policy effect"`
	Priority    *int           `json:"priority,omitempty" description:"Priority"`
	IsActive    *bool          `json:"is_active,omitempty" description:"Active flag"`
	Conditions  map[string]any `json:"conditions,omitempty" description:"Condition document; replaces existing conditions"`
}

// GetPolicyRequest is the path parameter for getting a policy.
type GetPolicyRequest struct {
	PolicyID string `path:"policyId" description:"Policy ID"`
}

// ListPoliciesRequest holds query parameters.
type ListPoliciesRequest struct {
	PermissionCode string `query:"permission_code" description:"Filter by permission code"`
	Effect         string `query:"effect" description:"Filter by effect (allow/deny)"`
	Active         string `query:"active" description:"Filter by active status (true/false)"`
	Search         string `query:"search" description:"Search by name"`
	Limit          int    `query:"limit" description:"Maximum results"`
	Offset         int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Audit requests
// ──────────────────────────────────────────────────

// ListAuditEntriesRequest holds query parameters for the audit log.
type ListAuditEntriesRequest struct {
	UserID     string `query:"user_id" description:"Filter by user"`
	Action     string `query:"action" description:"Filter by action"`
	Permission string `query:"permission" description:"Filter by permission code"`
	Outcome    string `query:"outcome" description:"Filter by outcome (success/denied)"`
	After      string `query:"after" description:"After timestamp (RFC3339)"`
	Before     string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit      int    `query:"limit" description:"Maximum results"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// PurgeAuditEntriesRequest holds the retention cutoff.
type PurgeAuditEntriesRequest struct {
	Before string `query:"before" description:"Remove entries created before this timestamp (RFC3339)"`
}
