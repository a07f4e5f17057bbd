// Package middleware provides HTTP permission guards for Steward.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/steward"
)

// Require enforces a permission on the route. The subject comes from the
// request context (Authsome user); their effective permission set resolves
// through the role membership, with users lacking one degraded to the
// read-only viewer tier.
func Require(eng *steward.Engine, permission string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			perms, err := effectivePermissions(ctx, eng)
			if err != nil {
				return denyResponse(ctx)
			}
			if !steward.Authorize(perms, permission) {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the permissions is held.
func RequireAny(eng *steward.Engine, permissions ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			perms, err := effectivePermissions(ctx, eng)
			if err != nil {
				return denyResponse(ctx)
			}
			for _, permission := range permissions {
				if steward.Authorize(perms, permission) {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL permissions are held.
func RequireAll(eng *steward.Engine, permissions ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			perms, err := effectivePermissions(ctx, eng)
			if err != nil {
				return denyResponse(ctx)
			}
			for _, permission := range permissions {
				if !steward.Authorize(perms, permission) {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// effectivePermissions resolves the caller's permission set. Anonymous
// requests resolve to nothing and fail every guard.
func effectivePermissions(ctx forge.Context, eng *steward.Engine) ([]string, error) {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return nil, steward.ErrUnauthorized
	}
	return eng.EffectivePermissions(ctx.Context(), userID)
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "permission denied"})
}
