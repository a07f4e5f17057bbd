// Package postgres provides a PostgreSQL implementation of the Steward
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/role"
	"github.com/xraph/steward/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the shared sentinel for missing entities.
var errNotFound = store.ErrNotFound

// pgUniqueViolation is the Postgres error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// Store is a PostgreSQL implementation of the composite Steward store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("steward: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("steward: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation unwraps driver errors down to the Postgres error code.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ──────────────────────────────────────────────────
// Action operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAction(ctx context.Context, a *action.Action) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.pgdb.NewInsert(actionToModel(a)).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create action: %w", err)
	}
	return nil
}

func (s *Store) GetAction(ctx context.Context, actionID id.ActionID) (*action.Action, error) {
	m := new(actionModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", actionID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("action %s: %w", actionID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get action: %w", err)
	}
	return actionFromModel(m), nil
}

func (s *Store) ListActions(ctx context.Context, filter *action.ListFilter) ([]*action.Action, error) {
	var models []actionModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.AgentID != "" {
			q = q.Where("agent_id = ?", filter.AgentID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		if filter.ActionType != "" {
			q = q.Where("action_type = ?", filter.ActionType)
		}
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list actions: %w", err)
	}
	result := make([]*action.Action, len(models))
	for i := range models {
		result[i] = actionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountActions(ctx context.Context, filter *action.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*actionModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.AgentID != "" {
			q = q.Where("agent_id = ?", filter.AgentID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		if filter.ActionType != "" {
			q = q.Where("action_type = ?", filter.ActionType)
		}
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count actions: %w", err)
	}
	return count, nil
}

// TransitionAction performs the compare-and-set as a single guarded
// UPDATE. Metadata is merged server-side with the || jsonb operator so
// concurrent decisions never clobber each other's reads.
func (s *Store) TransitionAction(ctx context.Context, actionID id.ActionID, t *action.Transition) (bool, error) {
	q := s.pgdb.NewUpdate((*actionModel)(nil)).
		Set("status = ?", string(t.To)).
		Set("approved_by = ?", t.ReviewerID).
		Set("approved_at = ?", t.DecidedAt).
		Set("executed_at = ?", t.ExecutedAt).
		Where("id = ?", actionID.String()).
		Where("status = ?", string(action.StatusPending))
	if t.Metadata != nil {
		q = q.Set("metadata = metadata || ?", t.Metadata)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("steward: transition action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("steward: transition action: %w", err)
	}
	return n > 0, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("steward: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, errNotFound)
		}
		return nil, fmt.Errorf("steward: get role by name: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = time.Now().UTC()
	if _, err := s.pgdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("steward: update role: %w", err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.pgdb.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("name ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*roleModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count roles: %w", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Membership operations
// ──────────────────────────────────────────────────

func (s *Store) CreateMembership(ctx context.Context, m *member.Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.pgdb.NewInsert(membershipToModel(m)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("membership for user %q: %w", m.UserID, store.ErrConflict)
		}
		return fmt.Errorf("steward: create membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembershipForUser(ctx context.Context, tenantID, userID string) (*member.Membership, error) {
	m := new(membershipModel)
	err := s.pgdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("membership for user %q: %w", userID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get membership: %w", err)
	}
	return membershipFromModel(m), nil
}

func (s *Store) DeleteMembership(ctx context.Context, memberID id.MembershipID) error {
	_, err := s.pgdb.NewDelete((*membershipModel)(nil)).
		Where("id = ?", memberID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete membership: %w", err)
	}
	return nil
}

func (s *Store) DeleteMembershipsForUser(ctx context.Context, tenantID, userID string) error {
	_, err := s.pgdb.NewDelete((*membershipModel)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete memberships for user: %w", err)
	}
	return nil
}

func (s *Store) ListMemberships(ctx context.Context, filter *member.ListFilter) ([]*member.Membership, error) {
	var models []membershipModel
	q := s.pgdb.NewSelect(&models).OrderExpr("user_id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.RoleName != "" {
			q = q.Where("role_name = ?", filter.RoleName)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("steward: list memberships: %w", err)
	}
	result := make([]*member.Membership, len(models))
	for i := range models {
		result[i] = membershipFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountMembershipsByRole(ctx context.Context, tenantID, roleName string) (int64, error) {
	count, err := s.pgdb.NewSelect((*membershipModel)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("role_name = ?", roleName).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count memberships by role: %w", err)
	}
	return count, nil
}
