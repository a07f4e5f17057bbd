package steward

import (
	"context"
	"strings"
)

// TTLClass is a named cache-lifetime policy bucket shared across many cache
// keys. Which class a data category uses is decided centrally (see
// ttlClassForEntity), never per call site.
type TTLClass int

const (
	// TTLShort is for near-real-time lists (pending actions, open work
	// orders). Roughly one minute.
	TTLShort TTLClass = iota

	// TTLMedium is for aggregate lists (properties, invoices). Roughly
	// five minutes.
	TTLMedium
)

// Cache is a read-through cache for derived views. Implementations must
// never fail the calling operation: the engine treats any error as a miss
// and computes directly.
type Cache interface {
	// GetOrCompute returns the cached value for key if within TTL;
	// otherwise it invokes compute exactly once per concurrent miss,
	// stores the result with an expiry derived from class, and returns it.
	// Compute errors are returned uncached.
	GetOrCompute(ctx context.Context, key string, class TTLClass, compute func(context.Context) (any, error)) (any, error)

	// Delete removes a single exact key.
	Delete(ctx context.Context, key string) error

	// InvalidateScope removes every entry whose key falls under the
	// (entityType, scope) namespace. Most cached values are list or
	// aggregate views, so a write to one entity invalidates every cached
	// view in its scope.
	InvalidateScope(ctx context.Context, entityType, scope string) error
}

// CacheKey builds a namespaced cache key: "entityType:scope:part[:part…]".
func CacheKey(entityType, scope string, parts ...string) string {
	elems := append([]string{entityType, scope}, parts...)
	return strings.Join(elems, ":")
}

// ScopePrefix is the key prefix covered by InvalidateScope for a given
// entity type and scope.
func ScopePrefix(entityType, scope string) string {
	return entityType + ":" + scope + ":"
}

// ttlClassForEntity maps a data category to its TTL class. Near-real-time
// operational lists stay short; aggregate portfolio views tolerate medium
// staleness.
func ttlClassForEntity(entityType string) TTLClass {
	switch entityType {
	case "agent_actions", "work_orders":
		return TTLShort
	default:
		return TTLMedium
	}
}
