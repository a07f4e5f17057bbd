// Package role defines the custom Role entity and its store interface.
// Custom roles overlay the compiled-in default roles; only custom roles
// are persisted.
package role

import (
	"time"

	"github.com/xraph/steward/id"
)

// Role is a named permission set assignable to users. Built-in default
// roles carry IsDefault and are never stored; the store only ever holds
// custom roles.
type Role struct {
	ID          id.RoleID `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Permissions []string  `json:"permissions" db:"permissions"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing custom roles.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
