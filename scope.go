package steward

import (
	"context"

	"github.com/xraph/forge"
)

// tenantScope pins a governed operation to one property-management tenant.
// Ledger reads, role lookups, cache keys, and the live-activity feed all
// partition on it.
type tenantScope struct {
	appID    string
	tenantID string
}

type scopeKey int

const (
	scopeKeyAppID scopeKey = iota
	scopeKeyTenantID
)

// WithTenant pins a context to an app and tenant for callers embedding the
// engine directly, outside a Forge request. A Forge request scope, when
// present, takes precedence over these values.
func WithTenant(ctx context.Context, appID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, scopeKeyAppID, appID)
	return context.WithValue(ctx, scopeKeyTenantID, tenantID)
}

// scopeFromContext resolves the governing tenant for an operation: the
// Forge request scope wins, then the values set by WithTenant. An empty
// tenant means the caller is unscoped and sees every tenant, which is
// reserved for operator tooling and single-tenant deployments.
func scopeFromContext(ctx context.Context) tenantScope {
	if s, ok := forge.ScopeFrom(ctx); ok {
		return tenantScope{appID: s.AppID(), tenantID: s.OrgID()}
	}
	appID, _ := ctx.Value(scopeKeyAppID).(string)
	tenantID, _ := ctx.Value(scopeKeyTenantID).(string)
	return tenantScope{appID: appID, tenantID: tenantID}
}
