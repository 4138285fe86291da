package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor/acl"
	"github.com/praetorhq/praetor/id"
)

func (a *API) registerACLRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("acl"))

	if err := g.POST("/acl-entries", a.createACLEntry,
		forge.WithSummary("Create ACL entry"),
		forge.WithDescription("Creates a per-user allow or deny exception for a single permission."),
		forge.WithOperationID("createACLEntry"),
		forge.WithRequestSchema(CreateACLEntryRequest{}),
		forge.WithCreatedResponse(&acl.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/acl-entries/:entryId", a.getACLEntry,
		forge.WithSummary("Get ACL entry"),
		forge.WithOperationID("getACLEntry"),
		forge.WithResponseSchema(http.StatusOK, "ACL entry", &acl.Entry{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/acl-entries/:entryId/active", a.setACLEntryActive,
		forge.WithSummary("Toggle ACL entry"),
		forge.WithDescription("Deactivating a deny entry lifts the block without losing the record."),
		forge.WithOperationID("setACLEntryActive"),
		forge.WithRequestSchema(SetACLEntryActiveRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/acl-entries/:entryId", a.deleteACLEntry,
		forge.WithSummary("Delete ACL entry"),
		forge.WithOperationID("deleteACLEntry"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/acl-entries", a.listACLEntries,
		forge.WithSummary("List ACL entries"),
		forge.WithOperationID("listACLEntries"),
		forge.WithRequestSchema(ListACLEntriesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "ACL entries", []*acl.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createACLEntry(ctx forge.Context, req *CreateACLEntryRequest) (*acl.Entry, error) {
	effect := acl.Effect(req.Effect)
	if !effect.Valid() {
		return nil, forge.BadRequest("effect must be allow or deny")
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
	}
	permID, err := id.ParsePermissionID(req.PermissionID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	now := time.Now().UTC()
	e := &acl.Entry{
		ID:           id.NewACLEntryID(),
		UserID:       userID,
		PermissionID: permID,
		Effect:       effect,
		Active:       true,
		GrantedBy:    req.GrantedBy,
		Reason:       req.Reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return nil, forge.BadRequest("invalid ends_at timestamp")
		}
		e.EndsAt = &t
	}

	if err := a.guard.Store().CreateEntry(ctx.Context(), e); err != nil {
		return nil, mapError(err)
	}
	return e, ctx.JSON(http.StatusCreated, e)
}

func (a *API) getACLEntry(ctx forge.Context, _ *GetACLEntryRequest) (*acl.Entry, error) {
	entryID, err := id.ParseACLEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	e, err := a.guard.Store().GetEntry(ctx.Context(), entryID)
	if err != nil {
		return nil, mapError(err)
	}
	if e == nil {
		return nil, forge.NotFound("ACL entry not found")
	}
	return e, ctx.JSON(http.StatusOK, e)
}

func (a *API) setACLEntryActive(ctx forge.Context, req *SetACLEntryActiveRequest) (*struct{}, error) {
	entryID, err := id.ParseACLEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	if err := a.guard.Store().SetEntryActive(ctx.Context(), entryID, req.Active); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) deleteACLEntry(ctx forge.Context, _ *GetACLEntryRequest) (*struct{}, error) {
	entryID, err := id.ParseACLEntryID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid entry ID: %v", err))
	}

	if err := a.guard.Store().DeleteEntry(ctx.Context(), entryID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listACLEntries(ctx forge.Context, req *ListACLEntriesRequest) ([]*acl.Entry, error) {
	filter := acl.ListFilter{
		Effect: acl.Effect(req.Effect),
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	if req.UserID != "" {
		userID, err := id.ParseUserID(req.UserID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
		}
		filter.UserID = &userID
	}
	if req.PermissionID != "" {
		permID, err := id.ParsePermissionID(req.PermissionID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
		}
		filter.PermissionID = &permID
	}
	switch req.Active {
	case "":
	case "true":
		active := true
		filter.Active = &active
	case "false":
		active := false
		filter.Active = &active
	default:
		return nil, forge.BadRequest("active must be true or false")
	}

	entries, err := a.guard.Store().ListEntries(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	return entries, ctx.JSON(http.StatusOK, entries)
}
