// Package mongo provides a MongoDB implementation of the Steward composite
// store using grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/role"
	"github.com/xraph/steward/store"
)

// Collection name constants.
const (
	colActions     = "steward_actions"
	colRoles       = "steward_roles"
	colMemberships = "steward_memberships"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the shared sentinel for missing entities.
var errNotFound = store.ErrNotFound

// Store is a MongoDB implementation of the composite Steward store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all steward collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("steward/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all steward collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colActions: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "agent_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "entity_type", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colRoles: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colMemberships: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role_name", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Action operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAction(ctx context.Context, a *action.Action) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	if _, err := s.mdb.NewInsert(actionToModel(a)).Exec(ctx); err != nil {
		return fmt.Errorf("steward: create action: %w", err)
	}
	return nil
}

func (s *Store) GetAction(ctx context.Context, actionID id.ActionID) (*action.Action, error) {
	var m actionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": actionID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("action %s: %w", actionID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get action: %w", err)
	}
	return actionFromModel(&m), nil
}

func (s *Store) ListActions(ctx context.Context, filter *action.ListFilter) ([]*action.Action, error) {
	var models []actionModel
	q := s.mdb.NewFind(&models).
		Filter(actionFilterDoc(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*actionModel)(nil)).
		Filter(actionFilterDoc(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count actions: %w", err)
	}
	return count, nil
}

func actionFilterDoc(filter *action.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.AgentID != "" {
		f["agent_id"] = filter.AgentID
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.ActionType != "" {
		f["action_type"] = filter.ActionType
	}
	if filter.EntityType != "" {
		f["entity_type"] = filter.EntityType
	}
	if filter.After != nil || filter.Before != nil {
		window := bson.M{}
		if filter.After != nil {
			window["$gte"] = *filter.After
		}
		if filter.Before != nil {
			window["$lte"] = *filter.Before
		}
		f["created_at"] = window
	}
	return f
}

// TransitionAction performs the compare-and-set as a filtered update: the
// status guard in the filter means a settled entry matches zero documents.
// Metadata keys are set by dotted path so prior keys survive.
func (s *Store) TransitionAction(ctx context.Context, actionID id.ActionID, t *action.Transition) (bool, error) {
	q := s.mdb.NewUpdate((*actionModel)(nil)).
		Filter(bson.M{"_id": actionID.String(), "status": string(action.StatusPending)}).
		Set("status", string(t.To)).
		Set("approved_by", t.ReviewerID).
		Set("approved_at", t.DecidedAt)
	if t.ExecutedAt != nil {
		q = q.Set("executed_at", *t.ExecutedAt)
	}
	for k, v := range t.Metadata {
		q = q.Set("metadata."+k, v)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("steward: transition action: %w", err)
	}
	return res.MatchedCount() > 0, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	t := now()
	r.CreatedAt = t
	r.UpdatedAt = t
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("steward: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, errNotFound)
		}
		return nil, fmt.Errorf("steward: get role by name: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = now()
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
		}
		return fmt.Errorf("steward: update role: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, errNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(f).
		Count(ctx)
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
		m.CreatedAt = now()
	}
	if _, err := s.mdb.NewInsert(membershipToModel(m)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("membership for user %q: %w", m.UserID, store.ErrConflict)
		}
		return fmt.Errorf("steward: create membership: %w", err)
	}
	return nil
}

func (s *Store) GetMembershipForUser(ctx context.Context, tenantID, userID string) (*member.Membership, error) {
	var m membershipModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "user_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("membership for user %q: %w", userID, errNotFound)
		}
		return nil, fmt.Errorf("steward: get membership: %w", err)
	}
	return membershipFromModel(&m), nil
}

func (s *Store) DeleteMembership(ctx context.Context, memberID id.MembershipID) error {
	_, err := s.mdb.NewDelete((*membershipModel)(nil)).
		Filter(bson.M{"_id": memberID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete membership: %w", err)
	}
	return nil
}

func (s *Store) DeleteMembershipsForUser(ctx context.Context, tenantID, userID string) error {
	_, err := s.mdb.NewDelete((*membershipModel)(nil)).
		Many().
		Filter(bson.M{"tenant_id": tenantID, "user_id": userID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("steward: delete memberships for user: %w", err)
	}
	return nil
}

func (s *Store) ListMemberships(ctx context.Context, filter *member.ListFilter) ([]*member.Membership, error) {
	var models []membershipModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.RoleName != "" {
			f["role_name"] = filter.RoleName
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "user_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*membershipModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID, "role_name": roleName}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("steward: count memberships by role: %w", err)
	}
	return count, nil
}
