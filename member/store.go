package member

import (
	"context"

	"github.com/xraph/steward/id"
)

// Store defines persistence operations for role memberships.
type Store interface {
	// CreateMembership persists a new membership.
	CreateMembership(ctx context.Context, m *Membership) error

	// GetMembershipForUser retrieves the active membership of a user.
	GetMembershipForUser(ctx context.Context, tenantID, userID string) (*Membership, error)

	// DeleteMembership removes a membership by ID.
	DeleteMembership(ctx context.Context, memberID id.MembershipID) error

	// DeleteMembershipsForUser removes all memberships of a user.
	DeleteMembershipsForUser(ctx context.Context, tenantID, userID string) error

	// ListMemberships returns memberships matching the filter.
	ListMemberships(ctx context.Context, filter *ListFilter) ([]*Membership, error)

	// CountMembershipsByRole returns how many users hold the named role.
	// The role-in-use guard for deletes runs on this.
	CountMembershipsByRole(ctx context.Context, tenantID, roleName string) (int64, error)
}
