package activity

import (
	"context"
	"sync"
	"time"
)

// subscriberChannelSize is the buffer for each subscription channel. If a
// subscriber's channel is full, the event is dropped for that subscriber
// rather than blocking the publish path.
const subscriberChannelSize = 64

// Subscription is one live listener on a scope. Events arrive on C in
// publish order for the scope, interleaved with periodic keep-alive ticks.
type Subscription struct {
	C <-chan Event

	scope string
	ch    chan Event
	done  chan struct{}
	once  sync.Once
}

// Close tears the subscription down and releases its timer. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// BroadcasterOption configures the Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithRingSize sets the per-scope recent-activity ring capacity.
func WithRingSize(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n > 0 {
			b.ringSize = n
		}
	}
}

// WithKeepAliveInterval sets the keep-alive tick period for subscriptions.
func WithKeepAliveInterval(d time.Duration) BroadcasterOption {
	return func(b *Broadcaster) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// Broadcaster fans live-activity records out to subscribers and keeps a
// bounded ring of recent records per scope. It owns the subscriber
// registry; there is no ambient module-level state.
type Broadcaster struct {
	mu       sync.Mutex
	rings    map[string]*ring
	subs     map[string][]*Subscription
	closed   bool
	ringSize int

	keepAlive time.Duration
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		rings:     make(map[string]*ring),
		subs:      make(map[string][]*Subscription),
		ringSize:  25,
		keepAlive: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish appends rec to the ring for its scope, each ancestor scope, and
// the global scope, then delivers it to every live subscriber of those.
// Sends are non-blocking: a slow subscriber misses the event instead of
// stalling delivery to the others. Publish never fails.
func (b *Broadcaster) Publish(rec *Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	scopes := deliveryScopes(rec.Scope)
	for _, scope := range scopes {
		b.ringFor(scope).append(rec)
	}

	event := Event{Type: EventActivity, Record: rec}
	for _, scope := range scopes {
		b.fanout(scope, event)
	}
}

// deliveryScopes expands a record's scope into every scope it is visible
// under: the scope itself, each "/"-delimited ancestor, and ScopeAll. A
// record in "tenant-a/work_orders" reaches subscribers of that scope, of
// "tenant-a", and of the global scope; it never reaches a sibling like
// "tenant-b" or the bare "work_orders".
func deliveryScopes(scope string) []string {
	scopes := []string{scope}
	for i := len(scope) - 1; i > 0; i-- {
		if scope[i] == '/' {
			scopes = append(scopes, scope[:i])
		}
	}
	if scope != ScopeAll {
		scopes = append(scopes, ScopeAll)
	}
	return scopes
}

// Recent returns up to n records for the scope, newest first.
func (b *Broadcaster) Recent(scope string, n int) []*Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[scope]
	if !ok {
		return nil
	}
	return r.snapshot(n)
}

// Subscribe registers a live listener for a scope. The subscription ends
// when ctx is cancelled or Close is called on it; either way the
// subscriber is removed from the registry and its keep-alive timer stops.
func (b *Broadcaster) Subscribe(ctx context.Context, scope string) *Subscription {
	sub := &Subscription{
		scope: scope,
		ch:    make(chan Event, subscriberChannelSize),
		done:  make(chan struct{}),
	}
	sub.C = sub.ch

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.Close()
		return sub
	}
	b.subs[scope] = append(b.subs[scope], sub)
	b.mu.Unlock()

	go b.run(ctx, sub)
	return sub
}

// run drives one subscription: keep-alive ticks until teardown.
func (b *Broadcaster) run(ctx context.Context, sub *Subscription) {
	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sub.Close()
			b.remove(sub)
			return
		case <-sub.done:
			b.remove(sub)
			return
		case <-ticker.C:
			select {
			case sub.ch <- Event{Type: EventKeepAlive}:
			default:
			}
		}
	}
}

// Close tears down every subscription. Further publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string][]*Subscription)
	b.closed = true
	b.mu.Unlock()

	for _, scoped := range subs {
		for _, sub := range scoped {
			sub.Close()
		}
	}
}

// fanout delivers an event to all live subscribers of a scope. Must be
// called with b.mu held. Ended subscriptions found along the way are
// pruned so a publish to a closed channel never happens.
func (b *Broadcaster) fanout(scope string, event Event) {
	scoped := b.subs[scope]
	for i := len(scoped) - 1; i >= 0; i-- {
		sub := scoped[i]
		select {
		case <-sub.done:
			scoped = append(scoped[:i], scoped[i+1:]...)
			continue
		default:
		}
		select {
		case sub.ch <- event:
		default:
			// Full buffer: drop for this subscriber only.
		}
	}
	if len(scoped) == 0 {
		delete(b.subs, scope)
	} else {
		b.subs[scope] = scoped
	}
}

// remove deletes a subscription from the registry.
func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scoped := b.subs[sub.scope]
	for i, existing := range scoped {
		if existing == sub {
			b.subs[sub.scope] = append(scoped[:i], scoped[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.scope]) == 0 {
		delete(b.subs, sub.scope)
	}
}

func (b *Broadcaster) ringFor(scope string) *ring {
	r, ok := b.rings[scope]
	if !ok {
		r = newRing(b.ringSize)
		b.rings[scope] = r
	}
	return r
}
