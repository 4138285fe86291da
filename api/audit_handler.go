package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor/audit"
	"github.com/praetorhq/praetor/id"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("audit"))

	if err := g.GET("/audit-entries", a.listAuditEntries,
		forge.WithSummary("List audit entries"),
		forge.WithOperationID("listAuditEntries"),
		forge.WithRequestSchema(ListAuditEntriesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entries, newest first", []*audit.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/audit-entries", a.purgeAuditEntries,
		forge.WithSummary("Purge audit entries"),
		forge.WithDescription("Removes entries created before the given cutoff and reports the count."),
		forge.WithOperationID("purgeAuditEntries"),
		forge.WithRequestSchema(PurgeAuditEntriesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Purge result", PurgeResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAuditEntries(ctx forge.Context, req *ListAuditEntriesRequest) ([]*audit.Entry, error) {
	filter := audit.QueryFilter{
		Action:     req.Action,
		Permission: req.Permission,
		Outcome:    audit.Outcome(req.Outcome),
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}
	if req.UserID != "" {
		userID, err := id.ParseUserID(req.UserID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
		}
		filter.UserID = &userID
	}
	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	entries, err := a.guard.Store().ListAuditEntries(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	return entries, ctx.JSON(http.StatusOK, entries)
}

func (a *API) purgeAuditEntries(ctx forge.Context, req *PurgeAuditEntriesRequest) (*PurgeResponse, error) {
	if req.Before == "" {
		return nil, forge.BadRequest("before is required")
	}
	before, err := time.Parse(time.RFC3339, req.Before)
	if err != nil {
		return nil, forge.BadRequest("invalid before timestamp")
	}

	removed, err := a.guard.Store().PurgeAuditEntries(ctx.Context(), before)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &PurgeResponse{Removed: removed}
	return resp, ctx.JSON(http.StatusOK, resp)
}
