package action

import (
	"context"
	"time"

	"github.com/xraph/steward/id"
)

// Transition carries the write of a single ledger state change. Metadata,
// when non-nil, is merged into the action's existing metadata bag without
// discarding prior keys.
type Transition struct {
	To         Status
	ReviewerID string
	DecidedAt  time.Time
	ExecutedAt *time.Time
	Metadata   map[string]any
}

// Store defines persistence operations for the action ledger.
type Store interface {
	// CreateAction persists a new ledger entry.
	CreateAction(ctx context.Context, a *Action) error

	// GetAction retrieves a ledger entry by ID.
	GetAction(ctx context.Context, actionID id.ActionID) (*Action, error)

	// ListActions returns entries matching the filter, newest first.
	ListActions(ctx context.Context, filter *ListFilter) ([]*Action, error)

	// CountActions returns the number of entries matching the filter.
	CountActions(ctx context.Context, filter *ListFilter) (int64, error)

	// TransitionAction applies t to the entry iff its status is still
	// pending, as a single compare-and-set write. It returns false with a
	// nil error when the entry was not pending (or does not exist) at
	// write time; the caller re-reads to tell those apart.
	TransitionAction(ctx context.Context, actionID id.ActionID, t *Transition) (bool, error)
}
