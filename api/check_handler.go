package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Evaluates whether a role or user holds the required permission."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions", a.resolvePermissions,
		forge.WithSummary("Resolve role permissions"),
		forge.WithDescription("Returns the effective permission set for a role name."),
		forge.WithOperationID("authzResolvePermissions"),
		forge.WithRequestSchema(ResolvePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Effective permissions", ResolvePermissionsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/catalog", a.catalog,
		forge.WithSummary("Permission catalogue"),
		forge.WithDescription("Enumerates every grantable permission token."),
		forge.WithOperationID("authzCatalog"),
		forge.WithResponseSchema(http.StatusOK, "Permission catalogue", CatalogResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if req.Permission == "" {
		return nil, forge.BadRequest("permission is required")
	}
	if req.RoleName == "" && req.UserID == "" {
		return nil, forge.BadRequest("role_name or user_id is required")
	}

	roleName := req.RoleName
	var perms []string
	var err error
	if roleName != "" {
		perms, err = a.eng.ResolvePermissions(ctx.Context(), roleName)
	} else {
		if m, merr := a.eng.MembershipForUser(ctx.Context(), req.UserID); merr == nil {
			roleName = m.RoleName
		} else {
			roleName = steward.RoleViewer
		}
		perms, err = a.eng.EffectivePermissions(ctx.Context(), req.UserID)
	}
	if err != nil {
		return nil, mapError(err)
	}

	resp := &CheckResponse{
		Allowed:    steward.Authorize(perms, req.Permission),
		Permission: req.Permission,
		RoleName:   roleName,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) resolvePermissions(ctx forge.Context, req *ResolvePermissionsRequest) (*ResolvePermissionsResponse, error) {
	if req.RoleName == "" {
		return nil, forge.BadRequest("role is required")
	}
	perms, err := a.eng.ResolvePermissions(ctx.Context(), req.RoleName)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ResolvePermissionsResponse{RoleName: req.RoleName, Permissions: perms}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) catalog(ctx forge.Context, _ *struct{}) (*CatalogResponse, error) {
	resp := &CatalogResponse{Permissions: steward.Catalog()}
	return resp, ctx.JSON(http.StatusOK, resp)
}
