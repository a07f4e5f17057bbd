// Package store defines the aggregate persistence interface. Each subsystem
// (action, role, member) defines its own store interface. The composite
// Store composes them all.
// Backends: Postgres, SQLite, Mongo, and Memory.
package store

import (
	"context"
	"errors"

	"github.com/xraph/steward/action"
	"github.com/xraph/steward/member"
	"github.com/xraph/steward/role"
)

// ErrNotFound is the sentinel wrapped by every backend when an entity
// does not exist. Callers test with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrConflict is the sentinel wrapped by backends when an insert violates
// a uniqueness constraint (role name, one membership per user).
var ErrConflict = errors.New("conflict")

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, sqlite, mongo, memory) implements all of them.
type Store interface {
	action.Store
	role.Store
	member.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
