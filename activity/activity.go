// Package activity provides the recent-activity ring and the live fan-out
// broadcaster for governed-action events.
package activity

import (
	"time"

	"github.com/xraph/steward/id"
)

// ScopeAll is the catch-all scope that receives every published record in
// addition to its own scope.
const ScopeAll = "all"

// Record is a single live-activity event. Records live in a capped
// per-scope ring independent of the durable action ledger; eviction is by
// ring capacity, not TTL.
type Record struct {
	ID          id.ActivityID `json:"id"`
	Scope       string        `json:"scope"`
	AgentID     string        `json:"agent_id"`
	AgentName   string        `json:"agent_name,omitempty"`
	ActionType  string        `json:"action_type"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
}

// EventType distinguishes activity payloads from keep-alive ticks on a
// subscription channel.
type EventType string

const (
	// EventActivity carries a published Record.
	EventActivity EventType = "activity"

	// EventKeepAlive is the periodic liveness tick emitted independent of
	// activity volume, so idle connections are distinguishable from dead
	// ones.
	EventKeepAlive EventType = "keepalive"
)

// Event is one element of a subscription stream.
type Event struct {
	Type   EventType `json:"type"`
	Record *Record   `json:"record,omitempty"`
}
