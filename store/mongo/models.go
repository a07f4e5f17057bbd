package mongo

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
	ID               string         `grove:"id,pk"             bson:"_id"`
	TenantID         string         `grove:"tenant_id"         bson:"tenant_id"`
	AgentID          string         `grove:"agent_id"          bson:"agent_id"`
	AgentName        string         `grove:"agent_name"        bson:"agent_name"`
	AgentType        string         `grove:"agent_type"        bson:"agent_type"`
	ActionType       string         `grove:"action_type"       bson:"action_type"`
	EntityType       string         `grove:"entity_type"       bson:"entity_type"`
	EntityID         string         `grove:"entity_id"         bson:"entity_id"`
	Reasoning        string         `grove:"reasoning"         bson:"reasoning"`
	Confidence       float64        `grove:"confidence"        bson:"confidence"`
	Impact           string         `grove:"impact"            bson:"impact"`
	RequiresApproval bool           `grove:"requires_approval" bson:"requires_approval"`
	Status           string         `grove:"status"            bson:"status"`
	ApprovedBy       string         `grove:"approved_by"       bson:"approved_by"`
	ApprovedAt       *time.Time     `grove:"approved_at"       bson:"approved_at,omitempty"`
	ExecutedAt       *time.Time     `grove:"executed_at"       bson:"executed_at,omitempty"`
	Metadata         map[string]any `grove:"metadata"          bson:"metadata,omitempty"`
	CreatedAt        time.Time      `grove:"created_at"        bson:"created_at"`
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
	ID              string    `grove:"id,pk"       bson:"_id"`
	TenantID        string    `grove:"tenant_id"   bson:"tenant_id"`
	Name            string    `grove:"name"        bson:"name"`
	Description     string    `grove:"description" bson:"description"`
	Permissions     []string  `grove:"permissions" bson:"permissions"`
	IsDefault       bool      `grove:"is_default"  bson:"is_default"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
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
	ID              string    `grove:"id,pk"      bson:"_id"`
	TenantID        string    `grove:"tenant_id"  bson:"tenant_id"`
	UserID          string    `grove:"user_id"    bson:"user_id"`
	RoleName        string    `grove:"role_name"  bson:"role_name"`
	GrantedBy       string    `grove:"granted_by" bson:"granted_by"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
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
