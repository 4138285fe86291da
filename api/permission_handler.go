package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/users/:userId/permissions", a.listUserGrants,
		forge.WithSummary("List effective permissions"),
		forge.WithDescription("Returns every permission the user currently holds, with its grant origin."),
		forge.WithOperationID("listUserPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Effective grants", []*permission.Grant{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	if req.Code == "" {
		return nil, forge.BadRequest("code is required")
	}

	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Code:        req.Code,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.guard.Store().CreatePermission(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	p, err := a.guard.Store().GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return nil, forge.NotFound("permission not found")
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) ([]*permission.Permission, error) {
	perms, err := a.guard.Store().ListPermissions(ctx.Context(), permission.ListFilter{
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return perms, ctx.JSON(http.StatusOK, perms)
}

func (a *API) listUserGrants(ctx forge.Context, _ *ListUserGrantsRequest) ([]*permission.Grant, error) {
	userID, err := id.ParseUserID(ctx.Param("userId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
	}

	grants, err := a.guard.Store().ListEffectiveGrants(ctx.Context(), userID, time.Now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	return grants, ctx.JSON(http.StatusOK, grants)
}
