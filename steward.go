// Package steward provides governed approval workflows for agent-proposed
// actions in multi-tenant property operations.
//
// Steward gates autonomous "agent" actions (AI-proposed operational changes)
// behind permission-checked human review. Proposed actions land in a durable
// ledger as pending, reviewers with sufficient permissions approve or reject
// them, and every transition is applied exactly once. Derived views are kept
// consistent through a read-through cache with scope invalidation, and a
// fan-out broadcaster feeds live activity streams. It is tenant-scoped by
// default via forge.Scope and integrates with the Forge ecosystem.
//
//	eng, err := steward.NewEngine(
//	    steward.WithStore(memStore),
//	)
//	act, err := eng.ProposeAction(ctx, &steward.Proposal{
//	    AgentID:          "agent_maint",
//	    AgentType:        "maintenance",
//	    ActionType:       "schedule_repair",
//	    EntityType:       "work_orders",
//	    EntityID:         "wo_123",
//	    Reasoning:        "HVAC fault reported in unit 4B",
//	    Confidence:       0.82,
//	    RequiresApproval: true,
//	})
//	_, err = eng.Decide(ctx, reviewer, act.ID, steward.DecisionApprove, "")
package steward

import (
	"github.com/xraph/steward/action"
	"github.com/xraph/steward/id"
)

// Reviewer identifies an authenticated actor deciding on actions or
// administering roles. Authentication happens upstream; Steward receives
// an identity plus a role name, never credentials.
type Reviewer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// Decision is the direction of a review decision.
type Decision string

const (
	// DecisionApprove approves a pending action and executes it.
	DecisionApprove Decision = "approve"

	// DecisionReject rejects a pending action.
	DecisionReject Decision = "reject"
)

// Proposal is the input for recording a new agent-proposed action.
type Proposal struct {
	AgentID          string         `json:"agent_id"`
	AgentName        string         `json:"agent_name,omitempty"`
	AgentType        string         `json:"agent_type"`
	ActionType       string         `json:"action_type"`
	EntityType       string         `json:"entity_type,omitempty"`
	EntityID         string         `json:"entity_id,omitempty"`
	Reasoning        string         `json:"reasoning"`
	Confidence       float64        `json:"confidence"`
	Impact           action.Impact  `json:"impact,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// DecisionOutcome reports the result of one item in a batch decision.
type DecisionOutcome struct {
	ActionID id.ActionID    `json:"action_id"`
	Action   *action.Action `json:"action,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// BatchResult summarizes a bulk decision. A batch never fails
// all-or-nothing: already-processed or missing items are reported
// per-outcome while the remaining pending items still transition.
type BatchResult struct {
	Processed int               `json:"processed"`
	Total     int               `json:"total"`
	Outcomes  []DecisionOutcome `json:"outcomes"`
}

// RolePatch describes a partial update to a custom role.
type RolePatch struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}
