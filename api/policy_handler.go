package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/policy"
)

func (a *API) registerPolicyRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("policies"))

	if err := g.POST("/policies", a.createPolicy,
		forge.WithSummary("Create policy"),
		forge.WithDescription("Creates an attribute-based policy for a permission code."),
		forge.WithOperationID("createPolicy"),
		forge.WithRequestSchema(CreatePolicyRequest{}),
		forge.WithCreatedResponse(&policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/policies/:policyId", a.getPolicy,
		forge.WithSummary("Get policy"),
		forge.WithOperationID("getPolicy"),
		forge.WithResponseSchema(http.StatusOK, "Policy details", &policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/policies/:policyId", a.updatePolicy,
		forge.WithSummary("Update policy"),
		forge.WithOperationID("updatePolicy"),
		forge.WithRequestSchema(UpdatePolicyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated policy", &policy.Policy{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/policies/:policyId", a.deletePolicy,
		forge.WithSummary("Delete policy"),
		forge.WithOperationID("deletePolicy"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/policies", a.listPolicies,
		forge.WithSummary("List policies"),
		forge.WithDescription("Returns policies ordered by priority descending, the order they are evaluated in."),
		forge.WithOperationID("listPolicies"),
		forge.WithRequestSchema(ListPoliciesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Policy list", []*policy.Policy{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPolicy(ctx forge.Context, req *CreatePolicyRequest) (*policy.Policy, error) {
	if req.Name == "" || req.PermissionCode == "" {
		return nil, forge.BadRequest("name and permission_code are required")
	}
	effect := policy.Effect(req.Effect)
	if !effect.Valid() {
		return nil, forge.BadRequest("effect must be allow or deny")
	}

	now := time.Now().UTC()
	p := &policy.Policy{
		ID:             id.NewPolicyID(),
		PermissionCode: req.PermissionCode,
		Name:           req.Name,
		Description:    req.Description,
		Effect:         effect,
		Priority:       req.Priority,
		IsActive:       req.IsActive,
		Conditions:     policy.ParseConditionDoc(req.Conditions),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.guard.Store().CreatePolicy(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPolicy(ctx forge.Context, _ *GetPolicyRequest) (*policy.Policy, error) {
	policyID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	p, err := a.guard.Store().GetPolicy(ctx.Context(), policyID)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return nil, forge.NotFound("policy not found")
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePolicy(ctx forge.Context, req *UpdatePolicyRequest) (*policy.Policy, error) {
	policyID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	p, err := a.guard.Store().GetPolicy(ctx.Context(), policyID)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return nil, forge.NotFound("policy not found")
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Effect != "" {
		effect := policy.Effect(req.Effect)
		if !effect.Valid() {
			return nil, forge.BadRequest("effect must be allow or deny")
		}
		p.Effect = effect
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Conditions != nil {
		p.Conditions = policy.ParseConditionDoc(req.Conditions)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := a.guard.Store().UpdatePolicy(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePolicy(ctx forge.Context, _ *GetPolicyRequest) (*struct{}, error) {
	policyID, err := id.ParsePolicyID(ctx.Param("policyId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid policy ID: %v", err))
	}

	if err := a.guard.Store().DeletePolicy(ctx.Context(), policyID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPolicies(ctx forge.Context, req *ListPoliciesRequest) ([]*policy.Policy, error) {
	filter := policy.ListFilter{
		PermissionCode: req.PermissionCode,
		Effect:         policy.Effect(req.Effect),
		Search:         req.Search,
		Limit:          defaultLimit(req.Limit),
		Offset:         req.Offset,
	}
	switch req.Active {
	case "":
	case "true":
		active := true
		filter.IsActive = &active
	case "false":
		active := false
		filter.IsActive = &active
	default:
		return nil, forge.BadRequest("active must be true or false")
	}

	policies, err := a.guard.Store().ListPolicies(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	return policies, ctx.JSON(http.StatusOK, policies)
}
