package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/steward"
)

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if v != "value" {
		t.Errorf("GetOrCompute() = %v, want value", v)
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}

	// Second call hits the cache.
	if _, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, compute); err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("compute calls after hit = %d, want 1", calls)
	}
}

func TestGetOrComputeError(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	wantErr := errors.New("source down")
	_, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, func(context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, wantErr)
	}

	// Errors are not cached; next call recomputes.
	v, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, func(context.Context) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if v != 42 {
		t.Errorf("GetOrCompute() = %v, want 42", v)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithShortTTL(10 * time.Millisecond))

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, compute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	v, err := c.GetOrCompute(ctx, "k1", steward.TTLShort, compute)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("after expiry GetOrCompute() = %v, want 2", v)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrCompute(ctx, "k1", steward.TTLMedium, compute); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	v, err := c.GetOrCompute(ctx, "k1", steward.TTLMedium, compute)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("after delete GetOrCompute() = %v, want 2", v)
	}
}

func TestInvalidateScope(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	seed := func(key string) {
		_, err := c.GetOrCompute(ctx, key, steward.TTLMedium, func(context.Context) (any, error) {
			return "seeded", nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	seed(steward.CacheKey("roles", "tenant-a", "list"))
	seed(steward.CacheKey("roles", "tenant-a", "count"))
	seed(steward.CacheKey("roles", "tenant-b", "list"))
	seed(steward.CacheKey("agent_actions", "tenant-a", "list"))

	if err := c.InvalidateScope(ctx, "roles", "tenant-a"); err != nil {
		t.Fatal(err)
	}

	check := func(key string, wantRecompute bool) {
		t.Helper()
		recomputed := false
		_, err := c.GetOrCompute(ctx, key, steward.TTLMedium, func(context.Context) (any, error) {
			recomputed = true
			return "fresh", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if recomputed != wantRecompute {
			t.Errorf("key %q recomputed = %v, want %v", key, recomputed, wantRecompute)
		}
	}
	check(steward.CacheKey("roles", "tenant-a", "list"), true)
	check(steward.CacheKey("roles", "tenant-a", "count"), true)
	check(steward.CacheKey("roles", "tenant-b", "list"), false)
	check(steward.CacheKey("agent_actions", "tenant-a", "list"), false)
}

func TestSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]any, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "hot", steward.TTLShort, compute)
			if err != nil {
				t.Errorf("GetOrCompute() error = %v", err)
				return
			}
			results[i] = v
		}(i)
	}

	// Let the goroutines pile up behind the leader, then release it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %d, want 1", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("worker %d got %v, want shared", i, v)
		}
	}
}

func TestMaxSizeEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	seed := func(key string) {
		_, err := c.GetOrCompute(ctx, key, steward.TTLMedium, func(context.Context) (any, error) {
			return key, nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	seed("a")
	seed("b")
	seed("c")

	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	if n > 2 {
		t.Errorf("entries = %d, want <= 2", n)
	}
}
