// Package action defines the governed Action entity and its ledger store
// interface. The ledger is the system of record for agent-proposed actions:
// entries are created pending, transition forward exactly once, and are
// never deleted.
package action

import (
	"time"

	"github.com/xraph/steward/id"
)

// Status is the lifecycle state of an action. Status only moves forward:
// pending → executed (via approval), pending → rejected, pending → failed.
// Every non-pending status is terminal.
type Status string

const (
	// StatusPending awaits a reviewer decision.
	StatusPending Status = "pending"

	// StatusApproved is the intermediate stamp of an approval. Approval
	// implies execution, so approved actions proceed to executed within
	// the same transition.
	StatusApproved Status = "approved"

	// StatusExecuted is the terminal state of an approved action.
	StatusExecuted Status = "executed"

	// StatusRejected is the terminal state of a rejected action.
	StatusRejected Status = "rejected"

	// StatusFailed records an execution-time breakdown after approval,
	// distinct from rejection.
	StatusFailed Status = "failed"
)

// Terminal reports whether s permits no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusExecuted, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Impact classifies the operational blast radius of an action.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Valid reports whether i is a known impact value.
func (i Impact) Valid() bool {
	return i == ImpactLow || i == ImpactMedium || i == ImpactHigh
}

// MetadataKeyRejectionReason is the metadata key under which a reviewer's
// rejection reason is recorded.
const MetadataKeyRejectionReason = "rejection_reason"

// Action is a single governed action in the ledger. ApprovedBy, ApprovedAt
// and ExecutedAt are set only as a consequence of a status transition,
// never directly. The reviewer identity is recorded under ApprovedBy for
// both decision directions.
type Action struct {
	ID               id.ActionID    `json:"id" db:"id"`
	TenantID         string         `json:"tenant_id" db:"tenant_id"`
	AgentID          string         `json:"agent_id" db:"agent_id"`
	AgentName        string         `json:"agent_name,omitempty" db:"agent_name"`
	AgentType        string         `json:"agent_type" db:"agent_type"`
	ActionType       string         `json:"action_type" db:"action_type"`
	EntityType       string         `json:"entity_type,omitempty" db:"entity_type"`
	EntityID         string         `json:"entity_id,omitempty" db:"entity_id"`
	Reasoning        string         `json:"reasoning" db:"reasoning"`
	Confidence       float64        `json:"confidence" db:"confidence"`
	Impact           Impact         `json:"impact" db:"impact"`
	RequiresApproval bool           `json:"requires_approval" db:"requires_approval"`
	Status           Status         `json:"status" db:"status"`
	ApprovedBy       string         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	ExecutedAt       *time.Time     `json:"executed_at,omitempty" db:"executed_at"`
	Metadata         map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing ledger entries. Results are
// ordered most-recent-first.
type ListFilter struct {
	TenantID   string     `json:"tenant_id,omitempty"`
	AgentID    string     `json:"agent_id,omitempty"`
	Status     Status     `json:"status,omitempty"`
	ActionType string     `json:"action_type,omitempty"`
	EntityType string     `json:"entity_type,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
