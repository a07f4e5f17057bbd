package steward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/activity"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/plugin"
	"github.com/xraph/steward/role"
	"github.com/xraph/steward/store"
)

// Engine is the governance façade. It records agent-proposed actions in the
// ledger, enforces the permission model on review decisions and role
// administration, keeps derived views consistent through the cache, feeds
// the live-activity broadcaster, and fires extension hooks.
type Engine struct {
	store     store.Store
	cache     Cache
	feed      *activity.Broadcaster
	ownedFeed bool
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config
}

// NewEngine creates a new Steward engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("steward: store is required")
	}
	if e.feed == nil {
		e.feed = activity.NewBroadcaster(
			activity.WithRingSize(e.config.recentActivityLimit()),
			activity.WithKeepAliveInterval(e.config.keepAliveInterval()),
		)
		e.ownedFeed = true
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Feed returns the live-activity broadcaster.
func (e *Engine) Feed() *activity.Broadcaster { return e.feed }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown: plugins get their shutdown hook, then
// the engine-owned broadcaster drops its subscribers.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	if e.ownedFeed {
		e.feed.Close()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission resolution
// ──────────────────────────────────────────────────

// ResolvePermissions returns the effective permission set for a role name.
// Built-in roles resolve to their compiled sets without touching the store;
// custom roles are looked up by name in the caller's tenant. An unknown
// role name degrades to the read-only viewer set, never to an empty set
// and never to a not-found error.
func (e *Engine) ResolvePermissions(ctx context.Context, roleName string) ([]string, error) {
	if perms, ok := DefaultRolePermissions(roleName); ok {
		return perms, nil
	}
	scope := scopeFromContext(ctx)
	r, err := e.store.GetRoleByName(ctx, scope.tenantID, roleName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ViewerPermissions(), nil
		}
		return nil, fmt.Errorf("steward: resolve permissions: %w", err)
	}
	perms := make([]string, len(r.Permissions))
	copy(perms, r.Permissions)
	return perms, nil
}

// EffectivePermissions resolves the permission set for a user via their
// role membership. Users without a membership get the viewer set.
func (e *Engine) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	scope := scopeFromContext(ctx)
	m, err := e.store.GetMembershipForUser(ctx, scope.tenantID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ViewerPermissions(), nil
		}
		return nil, fmt.Errorf("steward: effective permissions: %w", err)
	}
	return e.ResolvePermissions(ctx, m.RoleName)
}

// requirePermission checks that the actor exists and holds the required
// permission under the matching rule in Authorize.
func (e *Engine) requirePermission(ctx context.Context, actor *Reviewer, required string) error {
	if actor == nil || actor.ID == "" {
		return ErrUnauthorized
	}
	perms, err := e.ResolvePermissions(ctx, actor.Role)
	if err != nil {
		return err
	}
	if !Authorize(perms, required) {
		return fmt.Errorf("%w: %s", ErrForbidden, required)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Action ledger
// ──────────────────────────────────────────────────

// ProposeAction validates and records a new agent-proposed action. The
// review policy decides whether it lands pending or executes immediately:
// a proposal marked auto-approvable still goes to review when its
// confidence falls below Config.MinAutoConfidence or when it is
// high-impact and Config.ReviewHighImpact is set.
func (e *Engine) ProposeAction(ctx context.Context, p *Proposal) (*action.Action, error) {
	if err := validateProposal(p); err != nil {
		return nil, err
	}
	scope := scopeFromContext(ctx)
	now := time.Now().UTC()

	impact := p.Impact
	if impact == "" {
		impact = action.ImpactLow
	}

	act := &action.Action{
		ID:               id.NewActionID(),
		TenantID:         scope.tenantID,
		AgentID:          p.AgentID,
		AgentName:        p.AgentName,
		AgentType:        p.AgentType,
		ActionType:       p.ActionType,
		EntityType:       p.EntityType,
		EntityID:         p.EntityID,
		Reasoning:        p.Reasoning,
		Confidence:       p.Confidence,
		Impact:           impact,
		RequiresApproval: e.requiresReview(p, impact),
		Status:           action.StatusPending,
		Metadata:         p.Metadata,
		CreatedAt:        now,
	}
	if !act.RequiresApproval {
		act.Status = action.StatusExecuted
		act.ExecutedAt = &now
	}

	if err := e.store.CreateAction(ctx, act); err != nil {
		return nil, fmt.Errorf("steward: propose action: %w", err)
	}

	e.invalidateActionViews(ctx, scope.tenantID, act.EntityType)
	e.publishActivity(act)
	if e.plugins != nil {
		e.plugins.EmitActionProposed(ctx, act)
	}

	e.logger.Info("action proposed",
		"action_id", act.ID.String(),
		"agent_id", act.AgentID,
		"action_type", act.ActionType,
		"status", string(act.Status),
	)
	return act, nil
}

func (e *Engine) requiresReview(p *Proposal, impact action.Impact) bool {
	if p.RequiresApproval {
		return true
	}
	if e.config.MinAutoConfidence > 0 && p.Confidence < e.config.MinAutoConfidence {
		return true
	}
	if e.config.ReviewHighImpact && impact == action.ImpactHigh {
		return true
	}
	return false
}

func validateProposal(p *Proposal) error {
	if p == nil {
		return fmt.Errorf("%w: nil proposal", ErrInvalidProposal)
	}
	if p.AgentID == "" {
		return fmt.Errorf("%w: agent_id is required", ErrInvalidProposal)
	}
	if p.ActionType == "" {
		return fmt.Errorf("%w: action_type is required", ErrInvalidProposal)
	}
	if p.Reasoning == "" {
		return fmt.Errorf("%w: reasoning is required", ErrInvalidProposal)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", ErrInvalidProposal)
	}
	if p.Impact != "" && !p.Impact.Valid() {
		return fmt.Errorf("%w: unknown impact %q", ErrInvalidProposal, p.Impact)
	}
	return nil
}

// Decide applies a reviewer's approve or reject decision to a pending
// action. Approval implies execution: the action moves to executed in one
// transition. Rejection records the reason in the metadata bag. Deciding a
// terminal action returns ErrAlreadyProcessed without changing state.
func (e *Engine) Decide(ctx context.Context, reviewer *Reviewer, actionID id.ActionID, decision Decision, reason string) (*action.Action, error) {
	if reviewer == nil || reviewer.ID == "" {
		return nil, ErrUnauthorized
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	act, err := e.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}

	required := decisionDomain(act) + ":" + string(decision)
	if err := e.requirePermission(ctx, reviewer, required); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &action.Transition{
		ReviewerID: reviewer.ID,
		DecidedAt:  now,
	}
	if decision == DecisionApprove {
		t.To = action.StatusExecuted
		t.ExecutedAt = &now
	} else {
		t.To = action.StatusRejected
		if reason != "" {
			t.Metadata = map[string]any{action.MetadataKeyRejectionReason: reason}
		}
	}

	ok, err := e.store.TransitionAction(ctx, actionID, t)
	if err != nil {
		return nil, fmt.Errorf("steward: decide: %w", err)
	}
	if !ok {
		// Lost the compare-and-set: re-read to tell a concurrent decision
		// apart from a vanished action.
		if _, rerr := e.GetAction(ctx, actionID); rerr != nil {
			return nil, rerr
		}
		return nil, ErrAlreadyProcessed
	}

	act.Status = t.To
	act.ApprovedBy = reviewer.ID
	act.ApprovedAt = &now
	act.ExecutedAt = t.ExecutedAt
	if t.Metadata != nil {
		if act.Metadata == nil {
			act.Metadata = make(map[string]any, len(t.Metadata))
		}
		for k, v := range t.Metadata {
			act.Metadata[k] = v
		}
	}

	e.invalidateActionViews(ctx, act.TenantID, act.EntityType)
	e.publishActivity(act)
	if e.plugins != nil {
		e.plugins.EmitActionDecided(ctx, act)
	}

	e.logger.Info("action decided",
		"action_id", act.ID.String(),
		"reviewer_id", reviewer.ID,
		"decision", string(decision),
		"status", string(act.Status),
	)
	return act, nil
}

// DecideBatch applies one decision to many actions. The batch never fails
// all-or-nothing: each action transitions independently and already
// processed or missing entries are reported in their outcome while the
// rest proceed. A batch above Config.DecisionBatchLimit is refused whole
// rather than partially applied.
func (e *Engine) DecideBatch(ctx context.Context, reviewer *Reviewer, actionIDs []id.ActionID, decision Decision, reason string) (*BatchResult, error) {
	if reviewer == nil || reviewer.ID == "" {
		return nil, ErrUnauthorized
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if limit := e.config.decisionBatchLimit(); len(actionIDs) > limit {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit of %d", ErrValidation, len(actionIDs), limit)
	}

	result := &BatchResult{
		Total:    len(actionIDs),
		Outcomes: make([]DecisionOutcome, 0, len(actionIDs)),
	}
	for _, actionID := range actionIDs {
		outcome := DecisionOutcome{ActionID: actionID}
		act, err := e.Decide(ctx, reviewer, actionID, decision, reason)
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Action = act
			result.Processed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func decisionDomain(act *action.Action) string {
	if act.EntityType != "" {
		return act.EntityType
	}
	return "agent_actions"
}

// GetAction retrieves a ledger entry, scoped to the caller's tenant.
func (e *Engine) GetAction(ctx context.Context, actionID id.ActionID) (*action.Action, error) {
	act, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("steward: get action: %w", err)
	}
	scope := scopeFromContext(ctx)
	if scope.tenantID != "" && act.TenantID != scope.tenantID {
		return nil, ErrActionNotFound
	}
	return act, nil
}

// ListActions returns ledger entries matching the filter, newest first.
// This is the cached read path: results live under the short TTL class and
// every ledger write invalidates them.
func (e *Engine) ListActions(ctx context.Context, filter *action.ListFilter) ([]*action.Action, error) {
	if filter == nil {
		filter = &action.ListFilter{}
	}
	scope := scopeFromContext(ctx)
	if filter.TenantID == "" {
		filter.TenantID = scope.tenantID
	}
	if e.cache == nil {
		return e.store.ListActions(ctx, filter)
	}

	key := CacheKey("agent_actions", filter.TenantID, "list", actionFilterKey(filter))
	v, err := e.cache.GetOrCompute(ctx, key, TTLShort, func(ctx context.Context) (any, error) {
		return e.store.ListActions(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	actions, ok := v.([]*action.Action)
	if !ok {
		e.logger.Warn("cache returned unexpected type for action list", "key", key)
		return e.store.ListActions(ctx, filter)
	}
	return actions, nil
}

// CountActions returns the number of ledger entries matching the filter.
func (e *Engine) CountActions(ctx context.Context, filter *action.ListFilter) (int64, error) {
	if filter == nil {
		filter = &action.ListFilter{}
	}
	scope := scopeFromContext(ctx)
	if filter.TenantID == "" {
		filter.TenantID = scope.tenantID
	}
	return e.store.CountActions(ctx, filter)
}

// actionFilterKey fingerprints a list filter for cache keying. Every field
// participates so two different filters never share an entry.
func actionFilterKey(f *action.ListFilter) string {
	after, before := "", ""
	if f.After != nil {
		after = strconv.FormatInt(f.After.UnixNano(), 10)
	}
	if f.Before != nil {
		before = strconv.FormatInt(f.Before.UnixNano(), 10)
	}
	return f.AgentID + "|" + string(f.Status) + "|" + f.ActionType + "|" +
		f.EntityType + "|" + after + "|" + before + "|" +
		strconv.Itoa(f.Limit) + "|" + strconv.Itoa(f.Offset)
}

// CachedView serves an arbitrary derived view through the cache, with the
// TTL class chosen by the data category. A nil or failing cache degrades
// to computing directly; the governed operation never fails on cache
// trouble.
func (e *Engine) CachedView(ctx context.Context, entityType, viewScope, view string, compute func(context.Context) (any, error)) (any, error) {
	if e.cache == nil {
		return compute(ctx)
	}
	key := CacheKey(entityType, viewScope, view)
	return e.cache.GetOrCompute(ctx, key, ttlClassForEntity(entityType), compute)
}

// invalidateActionViews drops cached action lists for the tenant plus any
// cached views of the affected entity type. Invalidation runs after the
// ledger write; failures are logged and never surfaced.
func (e *Engine) invalidateActionViews(ctx context.Context, tenantID, entityType string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateScope(ctx, "agent_actions", tenantID); err != nil {
		e.logger.Warn("cache invalidation failed", "entity_type", "agent_actions", "error", err)
	}
	if entityType != "" && entityType != "agent_actions" {
		if err := e.cache.InvalidateScope(ctx, entityType, tenantID); err != nil {
			e.logger.Warn("cache invalidation failed", "entity_type", entityType, "error", err)
		}
	}
}

func (e *Engine) publishActivity(act *action.Action) {
	e.feed.Publish(&activity.Record{
		ID:          id.NewActivityID(),
		Scope:       feedScope(act.TenantID, decisionDomain(act)),
		AgentID:     act.AgentID,
		AgentName:   act.AgentName,
		ActionType:  act.ActionType,
		Description: act.Reasoning,
		Status:      string(act.Status),
		Timestamp:   time.Now().UTC(),
	})
}

// ──────────────────────────────────────────────────
// Role administration
// ──────────────────────────────────────────────────

// CreateRole creates a custom role. Requires roles:manage. The name must
// not collide with a built-in role or an existing custom role in the
// tenant, and requested permissions are filtered to the known catalogue.
func (e *Engine) CreateRole(ctx context.Context, actor *Reviewer, name, description string, permissions []string) (*role.Role, error) {
	if err := e.requirePermission(ctx, actor, "roles:manage"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	if IsDefaultRole(name) {
		return nil, ErrRoleNameTaken
	}
	scope := scopeFromContext(ctx)
	if _, err := e.store.GetRoleByName(ctx, scope.tenantID, name); err == nil {
		return nil, ErrRoleNameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("steward: create role: %w", err)
	}

	now := time.Now().UTC()
	r := &role.Role{
		ID:          id.NewRoleID(),
		TenantID:    scope.tenantID,
		Name:        name,
		Description: description,
		Permissions: NormalizePermissions(permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateRole(ctx, r); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrRoleNameTaken
		}
		return nil, fmt.Errorf("steward: create role: %w", err)
	}

	e.invalidateRoleViews(ctx, scope.tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	e.logger.Info("role created", "role_id", r.ID.String(), "name", r.Name, "actor_id", actor.ID)
	return r, nil
}

// UpdateRole applies a partial update to a custom role. Requires
// roles:manage. Built-in roles cannot be updated.
func (e *Engine) UpdateRole(ctx context.Context, actor *Reviewer, roleID id.RoleID, patch *RolePatch) (*role.Role, error) {
	if err := e.requirePermission(ctx, actor, "roles:manage"); err != nil {
		return nil, err
	}
	if _, isDefault := defaultRoleNameByID(roleID); isDefault {
		return nil, ErrDefaultRoleImmutable
	}
	r, err := e.getCustomRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		return r, nil
	}

	scope := scopeFromContext(ctx)
	if patch.Name != "" && patch.Name != r.Name {
		if IsDefaultRole(patch.Name) {
			return nil, ErrRoleNameTaken
		}
		if _, err := e.store.GetRoleByName(ctx, scope.tenantID, patch.Name); err == nil {
			return nil, ErrRoleNameTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("steward: update role: %w", err)
		}
		r.Name = patch.Name
	}
	if patch.Description != "" {
		r.Description = patch.Description
	}
	if patch.Permissions != nil {
		r.Permissions = NormalizePermissions(patch.Permissions)
	}
	r.UpdatedAt = time.Now().UTC()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrRoleNameTaken
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("steward: update role: %w", err)
	}

	e.invalidateRoleViews(ctx, scope.tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	e.logger.Info("role updated", "role_id", r.ID.String(), "name", r.Name, "actor_id", actor.ID)
	return r, nil
}

// DeleteRole removes a custom role. Requires roles:delete. Built-in roles
// cannot be deleted, and a role still held by any user is refused with
// ErrRoleInUse.
func (e *Engine) DeleteRole(ctx context.Context, actor *Reviewer, roleID id.RoleID) error {
	if err := e.requirePermission(ctx, actor, "roles:delete"); err != nil {
		return err
	}
	if _, isDefault := defaultRoleNameByID(roleID); isDefault {
		return ErrDefaultRoleImmutable
	}
	r, err := e.getCustomRole(ctx, roleID)
	if err != nil {
		return err
	}

	scope := scopeFromContext(ctx)
	held, err := e.store.CountMembershipsByRole(ctx, scope.tenantID, r.Name)
	if err != nil {
		return fmt.Errorf("steward: delete role: %w", err)
	}
	if held > 0 {
		return fmt.Errorf("%w: %d member(s)", ErrRoleInUse, held)
	}

	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("steward: delete role: %w", err)
	}

	e.invalidateRoleViews(ctx, scope.tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	e.logger.Info("role deleted", "role_id", roleID.String(), "name", r.Name, "actor_id", actor.ID)
	return nil
}

// GetRole retrieves a role by ID, built-in or custom.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	if name, ok := defaultRoleNameByID(roleID); ok {
		for _, r := range DefaultRoles() {
			if r.Name == name {
				return r, nil
			}
		}
	}
	return e.getCustomRole(ctx, roleID)
}

func (e *Engine) getCustomRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("steward: get role: %w", err)
	}
	scope := scopeFromContext(ctx)
	if scope.tenantID != "" && r.TenantID != scope.tenantID {
		return nil, ErrRoleNotFound
	}
	return r, nil
}

// ListRoles returns the built-in roles followed by the tenant's custom
// roles matching the filter. Search narrows both sets by name substring;
// pagination applies to the custom roles only, the built-ins are always
// present for display.
func (e *Engine) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if filter == nil {
		filter = &role.ListFilter{}
	}
	scope := scopeFromContext(ctx)
	if filter.TenantID == "" {
		filter.TenantID = scope.tenantID
	}

	custom, err := e.store.ListRoles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("steward: list roles: %w", err)
	}

	roles := make([]*role.Role, 0, len(custom)+5)
	for _, r := range DefaultRoles() {
		if filter.Search != "" && !containsFold(r.Name, filter.Search) {
			continue
		}
		roles = append(roles, r)
	}
	return append(roles, custom...), nil
}

// CountRoles returns the number of roles visible to the tenant, built-ins
// included.
func (e *Engine) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	if filter == nil {
		filter = &role.ListFilter{}
	}
	scope := scopeFromContext(ctx)
	if filter.TenantID == "" {
		filter.TenantID = scope.tenantID
	}
	n, err := e.store.CountRoles(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("steward: count roles: %w", err)
	}
	defaults := int64(0)
	for _, r := range DefaultRoles() {
		if filter.Search != "" && !containsFold(r.Name, filter.Search) {
			continue
		}
		defaults++
	}
	return n + defaults, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (e *Engine) invalidateRoleViews(ctx context.Context, tenantID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateScope(ctx, "roles", tenantID); err != nil {
		e.logger.Warn("cache invalidation failed", "entity_type", "roles", "error", err)
	}
}

// ──────────────────────────────────────────────────
// Memberships
// ──────────────────────────────────────────────────

// AssignRole binds a user to a role by name, replacing any existing
// membership. Requires roles:manage. The role must exist, built-in or
// custom.
func (e *Engine) AssignRole(ctx context.Context, actor *Reviewer, userID, roleName string) (*member.Membership, error) {
	if err := e.requirePermission(ctx, actor, "roles:manage"); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	scope := scopeFromContext(ctx)
	if !IsDefaultRole(roleName) {
		if _, err := e.store.GetRoleByName(ctx, scope.tenantID, roleName); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrRoleNotFound
			}
			return nil, fmt.Errorf("steward: assign role: %w", err)
		}
	}

	// One role per user: clearing first keeps the unique index happy.
	if err := e.store.DeleteMembershipsForUser(ctx, scope.tenantID, userID); err != nil {
		return nil, fmt.Errorf("steward: assign role: %w", err)
	}

	m := &member.Membership{
		ID:        id.NewMembershipID(),
		TenantID:  scope.tenantID,
		UserID:    userID,
		RoleName:  roleName,
		GrantedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CreateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("steward: assign role: %w", err)
	}

	e.invalidateRoleViews(ctx, scope.tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, m)
	}
	e.logger.Info("role assigned", "user_id", userID, "role", roleName, "actor_id", actor.ID)
	return m, nil
}

// UnassignRole removes a user's role membership. Requires roles:manage.
// The user falls back to viewer-level access.
func (e *Engine) UnassignRole(ctx context.Context, actor *Reviewer, userID string) error {
	if err := e.requirePermission(ctx, actor, "roles:manage"); err != nil {
		return err
	}
	scope := scopeFromContext(ctx)
	m, err := e.store.GetMembershipForUser(ctx, scope.tenantID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("steward: unassign role: %w", err)
	}
	if err := e.store.DeleteMembership(ctx, m.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("steward: unassign role: %w", err)
	}

	e.invalidateRoleViews(ctx, scope.tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleUnassigned(ctx, m)
	}
	e.logger.Info("role unassigned", "user_id", userID, "role", m.RoleName, "actor_id", actor.ID)
	return nil
}

// MembershipForUser returns a user's active membership in the caller's
// tenant.
func (e *Engine) MembershipForUser(ctx context.Context, userID string) (*member.Membership, error) {
	scope := scopeFromContext(ctx)
	m, err := e.store.GetMembershipForUser(ctx, scope.tenantID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("steward: membership for user: %w", err)
	}
	return m, nil
}

// ListMemberships returns memberships matching the filter.
func (e *Engine) ListMemberships(ctx context.Context, filter *member.ListFilter) ([]*member.Membership, error) {
	if filter == nil {
		filter = &member.ListFilter{}
	}
	scope := scopeFromContext(ctx)
	if filter.TenantID == "" {
		filter.TenantID = scope.tenantID
	}
	return e.store.ListMemberships(ctx, filter)
}

// ──────────────────────────────────────────────────
// Live activity
// ──────────────────────────────────────────────────

// RecentActivity returns the newest activity records for a scope in the
// caller's tenant, for bootstrap rendering before a live subscription
// catches up.
func (e *Engine) RecentActivity(ctx context.Context, scope string, n int) []*activity.Record {
	if n <= 0 || n > e.config.recentActivityLimit() {
		n = e.config.recentActivityLimit()
	}
	return e.feed.Recent(feedScope(scopeFromContext(ctx).tenantID, scope), n)
}

// Subscribe opens a live activity subscription for a scope in the caller's
// tenant. The returned subscription carries activity events and periodic
// keep-alives; it closes when ctx is cancelled or Close is called.
func (e *Engine) Subscribe(ctx context.Context, scope string) *activity.Subscription {
	return e.feed.Subscribe(ctx, feedScope(scopeFromContext(ctx).tenantID, scope))
}

// feedScope qualifies an activity scope with its tenant so one tenant's
// feed never reaches another's subscribers, mirroring how CacheKey
// partitions cached views. An empty tenant keeps the bare scope: an
// unscoped caller sees every tenant, same as the ledger reads.
func feedScope(tenantID, scope string) string {
	if scope == "" || scope == activity.ScopeAll {
		if tenantID == "" {
			return activity.ScopeAll
		}
		return tenantID
	}
	if tenantID == "" {
		return scope
	}
	return tenantID + "/" + scope
}
