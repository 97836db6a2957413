package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the serialized result for a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Memoizer wraps expensive computations with lookup-compute-store.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent calls for the same
//     key are coalesced; the computation runs once and all callers share
//     the result.
//   - Errors: computation errors are returned unchanged and never cached.
//     A failed durable store still returns the freshly computed value,
//     alongside an error wrapping ErrStorage.
type Memoizer struct {
	cache    Cache
	keyer    Keyer
	policy   Policy
	group    singleflight.Group
	onLookup func(ctx context.Context, computation string, hit bool)
}

// NewMemoizer creates a memoizer over the given cache.
// If keyer is nil, DefaultKeyer is used.
func NewMemoizer(cache Cache, keyer Keyer, policy Policy) *Memoizer {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Memoizer{
		cache:  cache,
		keyer:  keyer,
		policy: policy,
	}
}

// OnLookup registers a hook invoked after every cache lookup with the
// computation name and whether it hit. Set it before the memoizer is
// shared across goroutines.
func (m *Memoizer) OnLookup(hook func(ctx context.Context, computation string, hit bool)) {
	m.onLookup = hook
}

// Do returns the cached result for (computation, input), computing and
// storing it on a miss. Uses the policy's default TTL.
func (m *Memoizer) Do(ctx context.Context, computation string, input any, compute ComputeFunc) ([]byte, error) {
	return m.DoTTL(ctx, computation, input, 0, compute)
}

// DoTTL is Do with a TTL override, clamped by the policy's MaxTTL.
func (m *Memoizer) DoTTL(ctx context.Context, computation string, input any, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	if m == nil || m.cache == nil {
		return nil, ErrNilCache
	}

	if !m.policy.ShouldCache() {
		return compute(ctx)
	}

	key, err := m.keyer.Key(computation, input)
	if err != nil {
		// Key derivation failed - compute without caching
		return compute(ctx)
	}

	cached, ok := m.cache.Get(ctx, key)
	if m.onLookup != nil {
		m.onLookup(ctx, computation, ok)
	}
	if ok {
		return cached, nil
	}

	// Coalesce concurrent misses for the same key: one computation, all
	// callers share the outcome.
	value, err, _ := m.group.Do(key, func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			// Don't cache errors
			return nil, err
		}

		if storeErr := m.cache.Set(ctx, key, result, m.policy.EffectiveTTL(ttl)); storeErr != nil {
			// The result is good even if persisting it failed.
			return result, storeErr
		}
		return result, nil
	})

	if value == nil {
		return nil, err
	}
	return value.([]byte), err
}

// Invalidate removes the cached result for (computation, input). Idempotent.
func (m *Memoizer) Invalidate(ctx context.Context, computation string, input any) error {
	key, err := m.keyer.Key(computation, input)
	if err != nil {
		return err
	}
	return m.cache.Delete(ctx, key)
}
