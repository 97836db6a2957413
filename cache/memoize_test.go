package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoizer_ComputesOnMissServesFromCacheAfter(t *testing.T) {
	memo := NewMemoizer(NewMemoryCache(DefaultPolicy()), nil, DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("computed"), nil
	}

	input := map[string]any{"limit": 5000}

	for i := 0; i < 3; i++ {
		got, err := memo.Do(ctx, "parks", input, compute)
		if err != nil {
			t.Fatalf("Do %d failed: %v", i, err)
		}
		if string(got) != "computed" {
			t.Errorf("Do %d = %q, want %q", i, got, "computed")
		}
	}

	if calls.Load() != 1 {
		t.Errorf("compute called %d times, want 1", calls.Load())
	}
}

func TestMemoizer_ErrorsNotCached(t *testing.T) {
	memo := NewMemoizer(NewMemoryCache(DefaultPolicy()), nil, DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int64
	wantErr := errors.New("upstream unavailable")
	compute := func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, wantErr
		}
		return []byte("recovered"), nil
	}

	if _, err := memo.Do(ctx, "parks", nil, compute); !errors.Is(err, wantErr) {
		t.Fatalf("first Do = %v, want %v", err, wantErr)
	}

	// The failure was not cached; the second call recomputes.
	got, err := memo.Do(ctx, "parks", nil, compute)
	if err != nil {
		t.Fatalf("second Do failed: %v", err)
	}
	if string(got) != "recovered" {
		t.Errorf("second Do = %q, want %q", got, "recovered")
	}
	if calls.Load() != 2 {
		t.Errorf("compute called %d times, want 2", calls.Load())
	}
}

func TestMemoizer_ConcurrentCallsCoalesced(t *testing.T) {
	memo := NewMemoizer(NewMemoryCache(DefaultPolicy()), nil, DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("shared"), nil
	}

	const workers = 10
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := memo.Do(ctx, "parks", map[string]any{"limit": 5000}, compute)
			if err != nil {
				t.Errorf("worker %d: Do failed: %v", i, err)
				return
			}
			results[i] = got
		}(i)
	}

	// Give the workers time to pile up on the in-flight computation
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("compute called %d times, want 1 (coalesced)", calls.Load())
	}
	for i, got := range results {
		if !bytes.Equal(got, []byte("shared")) {
			t.Errorf("worker %d got %q, want %q", i, got, "shared")
		}
	}
}

func TestMemoizer_StoreFailureStillReturnsResult(t *testing.T) {
	storeErr := fmt.Errorf("%w: disk full", ErrStorage)
	memo := NewMemoizer(&failingCache{err: storeErr}, nil, DefaultPolicy())
	ctx := context.Background()

	got, err := memo.Do(ctx, "parks", nil, func(ctx context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})

	if !errors.Is(err, ErrStorage) {
		t.Errorf("Do = %v, want ErrStorage", err)
	}
	if string(got) != "fresh" {
		t.Errorf("Do result = %q, want %q even when persistence failed", got, "fresh")
	}
}

func TestMemoizer_NoCachePolicyBypassesCache(t *testing.T) {
	memo := NewMemoizer(NewMemoryCache(DefaultPolicy()), nil, NoCachePolicy())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("v"), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := memo.Do(ctx, "parks", nil, compute); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("compute called %d times, want 3 (caching disabled)", calls.Load())
	}
}

func TestMemoizer_NilCache(t *testing.T) {
	var memo *Memoizer
	if _, err := memo.Do(context.Background(), "parks", nil, nil); err != ErrNilCache {
		t.Errorf("Do on nil memoizer = %v, want ErrNilCache", err)
	}
}

func TestMemoizer_Invalidate(t *testing.T) {
	memo := NewMemoizer(NewMemoryCache(DefaultPolicy()), nil, DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("v"), nil
	}

	if _, err := memo.Do(ctx, "parks", nil, compute); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if err := memo.Invalidate(ctx, "parks", nil); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := memo.Do(ctx, "parks", nil, compute); err != nil {
		t.Fatalf("Do after Invalidate failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("compute called %d times, want 2 after invalidation", calls.Load())
	}

	// Invalidate is idempotent
	if err := memo.Invalidate(ctx, "parks", nil); err != nil {
		t.Errorf("second Invalidate should not error, got: %v", err)
	}
}

func TestMemoizer_TTLOverrideClamped(t *testing.T) {
	mem := NewMemoryCache(DefaultPolicy())
	memo := NewMemoizer(mem, nil, Policy{DefaultTTL: time.Minute, MaxTTL: 50 * time.Millisecond})
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("v"), nil
	}

	// Requested TTL far above MaxTTL gets clamped down to it.
	if _, err := memo.DoTTL(ctx, "parks", nil, time.Hour, compute); err != nil {
		t.Fatalf("DoTTL failed: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := memo.DoTTL(ctx, "parks", nil, time.Hour, compute); err != nil {
		t.Fatalf("DoTTL after expiry failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("compute called %d times, want 2 (clamped TTL expired)", calls.Load())
	}
}

func TestMemoizer_OnLookupHook(t *testing.T) {
	mem := NewMemoryCache(DefaultPolicy())
	memo := NewMemoizer(mem, nil, DefaultPolicy())
	ctx := context.Background()

	type lookup struct {
		computation string
		hit         bool
	}
	var lookups []lookup
	memo.OnLookup(func(_ context.Context, computation string, hit bool) {
		lookups = append(lookups, lookup{computation, hit})
	})

	compute := func(ctx context.Context) ([]byte, error) {
		return []byte("v"), nil
	}
	if _, err := memo.Do(ctx, "parks", nil, compute); err != nil {
		t.Fatalf("first Do failed: %v", err)
	}
	if _, err := memo.Do(ctx, "parks", nil, compute); err != nil {
		t.Fatalf("second Do failed: %v", err)
	}

	want := []lookup{{"parks", false}, {"parks", true}}
	if len(lookups) != 2 || lookups[0] != want[0] || lookups[1] != want[1] {
		t.Errorf("lookups = %v, want %v", lookups, want)
	}
}
