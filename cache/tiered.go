package cache

import (
	"context"
	"time"
)

// TieredCache layers a fast in-memory cache over a durable store.
//
// Lookups hit memory first; on a memory miss the durable store is
// consulted and, on a hit, the memory layer is repopulated. Stores write
// the durable layer first and update memory afterwards, so the index
// never points at an entry the store does not hold.
//
// A durable write failure is reported to the caller, but the value is
// still placed in memory so in-process readers keep working.
type TieredCache struct {
	memory  Cache
	durable Cache
}

// NewTieredCache creates a tiered cache over the given layers.
func NewTieredCache(memory, durable Cache) *TieredCache {
	return &TieredCache{memory: memory, durable: durable}
}

// ttlReporter is implemented by durable layers that can report the
// remaining lifetime of an entry.
type ttlReporter interface {
	TTL(ctx context.Context, key string) (time.Duration, bool)
}

// Get retrieves a value, memory first, then the durable store.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := c.memory.Get(ctx, key); ok {
		return value, true
	}

	value, ok := c.durable.Get(ctx, key)
	if !ok {
		return nil, false
	}

	// Populate the hot layer. The memory copy must never outlive the
	// durable entry, so its TTL is capped at the remaining lifetime when
	// the durable layer can report one.
	memTTL := repopulateTTL
	if reporter, ok := c.durable.(ttlReporter); ok {
		if remaining, known := reporter.TTL(ctx, key); known && remaining < memTTL {
			memTTL = remaining
		}
	}
	if memTTL > 0 {
		_ = c.memory.Set(ctx, key, value, memTTL)
	}
	return value, true
}

// repopulateTTL bounds how long a durable hit stays in the memory layer
// before the durable header's expiry is consulted again.
const repopulateTTL = 5 * time.Minute

// Set stores the value durably, then in memory.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.durable.Set(ctx, key, value, ttl)

	memTTL := ttl
	if memTTL > repopulateTTL {
		memTTL = repopulateTTL
	}
	_ = c.memory.Set(ctx, key, value, memTTL)

	return err
}

// Delete removes the entry from both layers. Idempotent.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	memErr := c.memory.Delete(ctx, key)
	durErr := c.durable.Delete(ctx, key)
	if durErr != nil {
		return durErr
	}
	return memErr
}

// Clear empties both layers. Idempotent.
func (c *TieredCache) Clear(ctx context.Context) error {
	memErr := c.memory.Clear(ctx)
	durErr := c.durable.Clear(ctx)
	if durErr != nil {
		return durErr
	}
	return memErr
}

// Ensure TieredCache implements Cache
var _ Cache = (*TieredCache)(nil)
