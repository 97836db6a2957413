package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache with LRU eviction.
//
// Entries are kept in recency order: Get and Set both mark an entry as
// most recently used. When Policy.MaxEntries is exceeded the entry at the
// tail is evicted; entries that were never read sit in insertion order,
// so the oldest-created one goes first.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	policy  Policy
}

type memoryEntry struct {
	key       string
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		policy:  policy,
	}
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		// Expired - clean up lazily
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores a value with the given TTL. TTL=0 means immediate expiry (no caching).
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	// TTL=0 means don't cache
	if ttl <= 0 {
		return nil
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = now.Add(ttl)
		c.order.MoveToFront(elem)
		return nil
	}

	elem := c.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	})
	c.entries[key] = elem

	c.evictLocked()
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	return nil
}

// Clear removes all values from the cache. Idempotent.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Len returns the number of entries currently held, including any that
// have expired but not yet been cleaned up.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked removes least-recently-used entries until the capacity
// bound is satisfied. Caller must hold c.mu.
func (c *MemoryCache) evictLocked() {
	if c.policy.MaxEntries <= 0 {
		return
	}
	for len(c.entries) > c.policy.MaxEntries {
		tail := c.order.Back()
		if tail == nil {
			return
		}
		entry := tail.Value.(*memoryEntry)
		c.order.Remove(tail)
		delete(c.entries, entry.key)
	}
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
