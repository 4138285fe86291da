package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor"
	"github.com/praetorhq/praetor/id"
)

func (a *API) registerAuthzRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/verify", a.verify,
		forge.WithSummary("Verify credential"),
		forge.WithDescription("Resolves a bearer credential into the session's identity."),
		forge.WithOperationID("authzVerify"),
		forge.WithRequestSchema(VerifyRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolved identity", IdentityResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/check", a.check,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Runs the decision pipeline for a user and permission without enforcing."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", DecisionResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", DecisionResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) verify(ctx forge.Context, req *VerifyRequest) (*IdentityResponse, error) {
	actor, err := a.guard.Authenticate(ctx.Context(), req.Token)
	if err != nil {
		body := &ErrorResponse{Code: praetor.ErrorCode(err), Error: err.Error()}
		return nil, ctx.JSON(http.StatusUnauthorized, body)
	}

	resp := toIdentityResponse(actor)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*DecisionResponse, error) {
	if req.UserID == "" || req.Permission == "" {
		return nil, forge.BadRequest("user_id and permission are required")
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
	}

	actor := &praetor.AuthContext{UserID: userID}
	d, err := a.guard.Authorize(ctx.Context(), actor, req.Permission, req.Rules, praetor.RequestMeta{})
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecisionResponse(d)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*DecisionResponse, error) {
	if req.UserID == "" || req.Permission == "" {
		return nil, forge.BadRequest("user_id and permission are required")
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
	}

	actor := &praetor.AuthContext{UserID: userID}
	d, err := a.guard.Authorize(ctx.Context(), actor, req.Permission, req.Rules, praetor.RequestMeta{})
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecisionResponse(d)
	if !d.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toIdentityResponse(actor *praetor.AuthContext) *IdentityResponse {
	resp := &IdentityResponse{
		UserID:    actor.UserID.String(),
		Name:      actor.Name,
		Email:     actor.Email,
		SessionID: actor.SessionID.String(),
	}
	if actor.ImpersonatedBy != nil {
		resp.ImpersonatedBy = actor.ImpersonatedBy.String()
	}
	return resp
}

func toDecisionResponse(d *praetor.Decision) *DecisionResponse {
	return &DecisionResponse{
		Allowed:    d.Allowed,
		Code:       d.Code.WireCode(),
		Provenance: d.Provenance,
		Policy:     d.Policy,
		Reason:     d.Reason,
		EvalTimeNs: d.EvalTimeNs,
	}
}
