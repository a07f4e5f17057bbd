package steward

import (
	"sort"

	"github.com/xraph/steward/id"
	"github.com/xraph/steward/role"
)

// The permission catalogue is enumerated once at process start. Tokens are
// "resource:verb"; the catalogue also accepts the resource wildcard
// "resource:*" and the universal "*" in role definitions.
var catalogue = map[string][]string{
	"properties":    {"read", "create", "update", "delete"},
	"units":         {"read", "create", "update", "delete"},
	"residents":     {"read", "create", "update", "delete"},
	"leases":        {"read", "create", "update", "delete"},
	"invoices":      {"read", "create", "update", "approve", "reject"},
	"payments":      {"read", "create", "approve", "reject"},
	"work_orders":   {"read", "create", "update", "approve", "reject"},
	"vendors":       {"read", "create", "update", "delete"},
	"reports":       {"read", "create"},
	"agent_actions": {"read", "propose", "approve", "reject"},
	"roles":         {"read", "manage", "delete"},
}

// Built-in default role names. Default roles are compiled in, hold fixed
// IDs, and cannot be mutated or deleted.
const (
	RoleViewer          = "viewer"
	RoleStaff           = "staff"
	RolePropertyManager = "property_manager"
	RoleAdmin           = "admin"
	RoleOwner           = "owner"
)

// Sentinel IDs for the built-in roles (all-zero suffixes are reserved for
// compiled-in entities and never generated).
var defaultRoleIDs = map[string]id.RoleID{
	RoleViewer:          id.MustParse("role_00000000000000000000000001"),
	RoleStaff:           id.MustParse("role_00000000000000000000000002"),
	RolePropertyManager: id.MustParse("role_00000000000000000000000003"),
	RoleAdmin:           id.MustParse("role_00000000000000000000000004"),
	RoleOwner:           id.MustParse("role_00000000000000000000000005"),
}

var defaultRolePerms = map[string][]string{
	RoleViewer: {
		"properties:read", "units:read", "residents:read", "leases:read",
		"invoices:read", "payments:read", "work_orders:read",
		"reports:read", "agent_actions:read",
	},
	RoleStaff: {
		"properties:read", "units:read", "residents:read", "residents:create",
		"residents:update", "leases:read", "invoices:read", "payments:read",
		"work_orders:read", "work_orders:create", "work_orders:update",
		"reports:read", "agent_actions:read",
	},
	RolePropertyManager: {
		"properties:*", "units:*", "residents:*", "leases:*", "invoices:*",
		"payments:*", "work_orders:*", "vendors:*", "reports:*",
		"agent_actions:*",
	},
	RoleAdmin: {
		"properties:*", "units:*", "residents:*", "leases:*", "invoices:*",
		"payments:*", "work_orders:*", "vendors:*", "reports:*",
		"agent_actions:*", "roles:read", "roles:manage",
	},
	RoleOwner: {"*"},
}

var defaultRoleDescriptions = map[string]string{
	RoleViewer:          "Read-only access to portfolio data",
	RoleStaff:           "Day-to-day operations on residents and work orders",
	RolePropertyManager: "Full operational control of the portfolio",
	RoleAdmin:           "Operations plus role administration",
	RoleOwner:           "Unrestricted access",
}

// Catalog returns every known permission token, sorted.
func Catalog() []string {
	perms := make([]string, 0, 64)
	for resource, verbs := range catalogue {
		for _, verb := range verbs {
			perms = append(perms, resource+":"+verb)
		}
	}
	sort.Strings(perms)
	return perms
}

// KnownPermission reports whether a token is storable on a role: a
// catalogued "resource:verb", a catalogued "resource:*", or "*".
func KnownPermission(token string) bool {
	if token == "*" {
		return true
	}
	for resource, verbs := range catalogue {
		if token == resource+":*" {
			return true
		}
		for _, verb := range verbs {
			if token == resource+":"+verb {
				return true
			}
		}
	}
	return false
}

// NormalizePermissions filters a requested permission list down to the
// known catalogue, dropping unknown tokens and duplicates. Order is
// preserved. Unknown tokens are dropped silently, never stored.
func NormalizePermissions(requested []string) []string {
	seen := make(map[string]struct{}, len(requested))
	result := make([]string, 0, len(requested))
	for _, token := range requested {
		if _, dup := seen[token]; dup {
			continue
		}
		if !KnownPermission(token) {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}

// IsDefaultRole reports whether name is a built-in role name.
func IsDefaultRole(name string) bool {
	_, ok := defaultRolePerms[name]
	return ok
}

// DefaultRoleID returns the fixed ID of a built-in role.
func DefaultRoleID(name string) (id.RoleID, bool) {
	rid, ok := defaultRoleIDs[name]
	return rid, ok
}

// defaultRoleNameByID resolves a built-in role's name from its fixed ID.
func defaultRoleNameByID(rid id.RoleID) (string, bool) {
	for name, known := range defaultRoleIDs {
		if known.String() == rid.String() {
			return name, true
		}
	}
	return "", false
}

// DefaultRolePermissions returns a copy of a built-in role's permission set.
func DefaultRolePermissions(name string) ([]string, bool) {
	perms, ok := defaultRolePerms[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

// ViewerPermissions returns the minimal fallback permission set. Unknown
// roles degrade to this read-only set, never to an empty set.
func ViewerPermissions() []string {
	out, _ := DefaultRolePermissions(RoleViewer)
	return out
}

// DefaultRoles returns the built-in roles as Role entities for display.
func DefaultRoles() []*role.Role {
	names := []string{RoleViewer, RoleStaff, RolePropertyManager, RoleAdmin, RoleOwner}
	roles := make([]*role.Role, 0, len(names))
	for _, name := range names {
		perms, _ := DefaultRolePermissions(name)
		roles = append(roles, &role.Role{
			ID:          defaultRoleIDs[name],
			Name:        name,
			Description: defaultRoleDescriptions[name],
			Permissions: perms,
			IsDefault:   true,
		})
	}
	return roles
}
