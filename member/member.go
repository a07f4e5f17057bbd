// Package member defines the Membership entity (user→role binding).
// A user holds at most one active role per tenant; memberships reference
// roles by name so built-in default roles are assignable too.
package member

import (
	"time"

	"github.com/xraph/steward/id"
)

// Membership binds a user to their active role within a tenant.
type Membership struct {
	ID        id.MembershipID `json:"id" db:"id"`
	TenantID  string          `json:"tenant_id" db:"tenant_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	RoleName  string          `json:"role_name" db:"role_name"`
	GrantedBy string          `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing memberships.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	RoleName string `json:"role_name,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
