// Package cache provides caching implementations for Steward derived views.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/steward"
)

// Compile-time interface check.
var _ steward.Cache = (*Memory)(nil)

// Memory is an in-memory read-through cache with TTL classes, per-key
// in-flight de-duplication, and prefix invalidation.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*call
	shortTTL time.Duration
	medTTL   time.Duration
	maxSize  int
}

type entry struct {
	value     any
	expiresAt time.Time
}

// call tracks one in-flight compute so that concurrent misses for the same
// key wait for a single computation instead of stampeding the source.
type call struct {
	done chan struct{}
	val  any
	err  error
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithShortTTL sets the lifetime of the short TTL class.
func WithShortTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.shortTTL = ttl }
}

// WithMediumTTL sets the lifetime of the medium TTL class.
func WithMediumTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.medTTL = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:  make(map[string]*entry),
		inflight: make(map[string]*call),
		shortTTL: time.Minute,
		medTTL:   5 * time.Minute,
		maxSize:  10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCompute returns the cached value for key if within TTL; otherwise it
// runs compute exactly once per concurrent miss and caches the result.
// Compute runs outside the cache lock; its errors are returned uncached.
func (m *Memory) GetOrCompute(ctx context.Context, key string, class steward.TTLClass, compute func(context.Context) (any, error)) (any, error) {
	for {
		m.mu.Lock()
		if e, ok := m.entries[key]; ok && time.Now().Before(e.expiresAt) {
			m.mu.Unlock()
			return e.value, nil
		}
		if c, ok := m.inflight[key]; ok {
			m.mu.Unlock()
			select {
			case <-c.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if c.err == nil {
				return c.val, nil
			}
			// The leader failed; retry as a fresh miss.
			continue
		}
		c := &call{done: make(chan struct{})}
		m.inflight[key] = c
		m.mu.Unlock()

		c.val, c.err = compute(ctx)

		m.mu.Lock()
		delete(m.inflight, key)
		if c.err == nil {
			m.store(key, c.val, class)
		}
		m.mu.Unlock()
		close(c.done)

		return c.val, c.err
	}
}

// Delete removes a single exact key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// InvalidateScope removes every entry under the (entityType, scope)
// namespace prefix.
func (m *Memory) InvalidateScope(_ context.Context, entityType, scope string) error {
	prefix := steward.ScopePrefix(entityType, scope)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
	return nil
}

// store inserts an entry, evicting as needed. Must hold m.mu.
func (m *Memory) store(key string, value any, class steward.TTLClass) {
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}
	m.entries[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(m.ttlFor(class)),
	}
}

func (m *Memory) ttlFor(class steward.TTLClass) time.Duration {
	if class == steward.TTLMedium {
		return m.medTTL
	}
	return m.shortTTL
}

// evictExpired removes all expired entries. Must hold m.mu.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold m.mu.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
