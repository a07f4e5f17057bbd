package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/role"
)

// ──────────────────────────────────────────────────
// Action model
// ──────────────────────────────────────────────────

type actionModel struct {
	grove.BaseModel  `grove:"table:steward_actions"`
	ID               string         `grove:"id,pk"`
	TenantID         string         `grove:"tenant_id,notnull"`
	AgentID          string         `grove:"agent_id,notnull"`
	AgentName        string         `grove:"agent_name"`
	AgentType        string         `grove:"agent_type,notnull"`
	ActionType       string         `grove:"action_type,notnull"`
	EntityType       string         `grove:"entity_type"`
	EntityID         string         `grove:"entity_id"`
	Reasoning        string         `grove:"reasoning"`
	Confidence       float64        `grove:"confidence,notnull"`
	Impact           string         `grove:"impact,notnull"`
	RequiresApproval bool           `grove:"requires_approval,notnull"`
	Status           string         `grove:"status,notnull"`
	ApprovedBy       string         `grove:"approved_by"`
	ApprovedAt       *time.Time     `grove:"approved_at"`
	ExecutedAt       *time.Time     `grove:"executed_at"`
	Metadata         map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt        time.Time      `grove:"created_at,notnull"`
}

func actionToModel(a *action.Action) *actionModel {
	return &actionModel{
		ID:               a.ID.String(),
		TenantID:         a.TenantID,
		AgentID:          a.AgentID,
		AgentName:        a.AgentName,
		AgentType:        a.AgentType,
		ActionType:       a.ActionType,
		EntityType:       a.EntityType,
		EntityID:         a.EntityID,
		Reasoning:        a.Reasoning,
		Confidence:       a.Confidence,
		Impact:           string(a.Impact),
		RequiresApproval: a.RequiresApproval,
		Status:           string(a.Status),
		ApprovedBy:       a.ApprovedBy,
		ApprovedAt:       a.ApprovedAt,
		ExecutedAt:       a.ExecutedAt,
		Metadata:         a.Metadata,
		CreatedAt:        a.CreatedAt,
	}
}

func actionFromModel(m *actionModel) *action.Action {
	aid, _ := id.ParseActionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &action.Action{
		ID:               aid,
		TenantID:         m.TenantID,
		AgentID:          m.AgentID,
		AgentName:        m.AgentName,
		AgentType:        m.AgentType,
		ActionType:       m.ActionType,
		EntityType:       m.EntityType,
		EntityID:         m.EntityID,
		Reasoning:        m.Reasoning,
		Confidence:       m.Confidence,
		Impact:           action.Impact(m.Impact),
		RequiresApproval: m.RequiresApproval,
		Status:           action.Status(m.Status),
		ApprovedBy:       m.ApprovedBy,
		ApprovedAt:       m.ApprovedAt,
		ExecutedAt:       m.ExecutedAt,
		Metadata:         m.Metadata,
		CreatedAt:        m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:steward_roles"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	Permissions     []string  `grove:"permissions,type:jsonb"`
	IsDefault       bool      `grove:"is_default,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsDefault:   r.IsDefault,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:          rid,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Description: m.Description,
		Permissions: m.Permissions,
		IsDefault:   m.IsDefault,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Membership model
// ──────────────────────────────────────────────────

type membershipModel struct {
	grove.BaseModel `grove:"table:steward_memberships"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	RoleName        string    `grove:"role_name,notnull"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func membershipToModel(m *member.Membership) *membershipModel {
	return &membershipModel{
		ID:        m.ID.String(),
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		RoleName:  m.RoleName,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}

func membershipFromModel(m *membershipModel) *member.Membership {
	mid, _ := id.ParseMembershipID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &member.Membership{
		ID:        mid,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		RoleName:  m.RoleName,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}
