// Package memory provides an in-memory implementation of the Steward
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/role"
	"github.com/xraph/steward/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store for all Steward entities.
type Store struct {
	mu sync.RWMutex

	actions     map[string]*action.Action
	roles       map[string]*role.Role
	memberships map[string]*member.Membership
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		actions:     make(map[string]*action.Action),
		roles:       make(map[string]*role.Role),
		memberships: make(map[string]*member.Membership),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Action Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAction(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.ID.String()] = copyAction(a)
	return nil
}

func (s *Store) GetAction(_ context.Context, actionID id.ActionID) (*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[actionID.String()]
	if !ok {
		return nil, fmt.Errorf("action %s: %w", actionID, errNotFound)
	}
	return copyAction(a), nil
}

func (s *Store) ListActions(_ context.Context, filter *action.ListFilter) ([]*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*action.Action, 0, len(s.actions))
	for _, a := range s.actions {
		if !matchAction(a, filter) {
			continue
		}
		result = append(result, copyAction(a))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return applyPagination(result, paginationOptsAction(filter)), nil
}

func (s *Store) CountActions(_ context.Context, filter *action.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, a := range s.actions {
		if matchAction(a, filter) {
			count++
		}
	}
	return count, nil
}

// TransitionAction applies t while the entry is still pending. The mutex
// serializes the check-and-write so concurrent decisions on one action
// resolve to exactly one winner.
func (s *Store) TransitionAction(_ context.Context, actionID id.ActionID, t *action.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[actionID.String()]
	if !ok || a.Status != action.StatusPending {
		return false, nil
	}
	a.Status = t.To
	a.ApprovedBy = t.ReviewerID
	decidedAt := t.DecidedAt
	a.ApprovedAt = &decidedAt
	a.ExecutedAt = t.ExecutedAt
	if t.Metadata != nil {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any, len(t.Metadata))
		}
		for k, v := range t.Metadata {
			a.Metadata[k] = v
		}
	}
	return true, nil
}

func matchAction(a *action.Action, filter *action.ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.TenantID != "" && a.TenantID != filter.TenantID {
		return false
	}
	if filter.AgentID != "" && a.AgentID != filter.AgentID {
		return false
	}
	if filter.Status != "" && a.Status != filter.Status {
		return false
	}
	if filter.ActionType != "" && a.ActionType != filter.ActionType {
		return false
	}
	if filter.EntityType != "" && a.EntityType != filter.EntityType {
		return false
	}
	if filter.After != nil && a.CreatedAt.Before(*filter.After) {
		return false
	}
	if filter.Before != nil && a.CreatedAt.After(*filter.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

// CreateRole enforces per-tenant name uniqueness under the mutex, matching
// the unique index the SQL backends rely on.
func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.TenantID == r.TenantID && existing.Name == r.Name {
			return fmt.Errorf("role %q: %w", r.Name, errConflict)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, tenantID, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, errNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, errNotFound)
	}
	for key, existing := range s.roles {
		if key != r.ID.String() && existing.TenantID == r.TenantID && existing.Name == r.Name {
			return fmt.Errorf("role %q: %w", r.Name, errConflict)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return applyPagination(result, paginationOptsRole(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	list, err := s.ListRoles(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// ──────────────────────────────────────────────────
// Membership Store
// ──────────────────────────────────────────────────

// CreateMembership enforces one membership per user per tenant under the
// mutex, matching the unique index the SQL backends rely on.
func (s *Store) CreateMembership(_ context.Context, m *member.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memberships {
		if existing.TenantID == m.TenantID && existing.UserID == m.UserID {
			return fmt.Errorf("membership for user %q: %w", m.UserID, errConflict)
		}
	}
	s.memberships[m.ID.String()] = copyMembership(m)
	return nil
}

func (s *Store) GetMembershipForUser(_ context.Context, tenantID, userID string) (*member.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.TenantID == tenantID && m.UserID == userID {
			return copyMembership(m), nil
		}
	}
	return nil, fmt.Errorf("membership for user %q: %w", userID, errNotFound)
}

func (s *Store) DeleteMembership(_ context.Context, memberID id.MembershipID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, memberID.String())
	return nil
}

func (s *Store) DeleteMembershipsForUser(_ context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.memberships {
		if m.TenantID == tenantID && m.UserID == userID {
			delete(s.memberships, k)
		}
	}
	return nil
}

func (s *Store) ListMemberships(_ context.Context, filter *member.ListFilter) ([]*member.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*member.Membership, 0, len(s.memberships))
	for _, m := range s.memberships {
		if filter != nil {
			if filter.TenantID != "" && m.TenantID != filter.TenantID {
				continue
			}
			if filter.UserID != "" && m.UserID != filter.UserID {
				continue
			}
			if filter.RoleName != "" && m.RoleName != filter.RoleName {
				continue
			}
		}
		result = append(result, copyMembership(m))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return applyPagination(result, paginationOptsMember(filter)), nil
}

func (s *Store) CountMembershipsByRole(_ context.Context, tenantID, roleName string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, m := range s.memberships {
		if m.TenantID == tenantID && m.RoleName == roleName {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

var (
	errNotFound = store.ErrNotFound
	errConflict = store.ErrConflict
)

func copyAction(a *action.Action) *action.Action {
	c := *a
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		c.ApprovedAt = &t
	}
	if a.ExecutedAt != nil {
		t := *a.ExecutedAt
		c.ExecutedAt = &t
	}
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	if r.Permissions != nil {
		c.Permissions = make([]string, len(r.Permissions))
		copy(c.Permissions, r.Permissions)
	}
	return &c
}

func copyMembership(m *member.Membership) *member.Membership {
	c := *m
	return &c
}

type pagOpts struct{ limit, offset int }

func paginationOptsAction(f *action.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsRole(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsMember(f *member.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
