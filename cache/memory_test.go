package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	cache := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	// Get on empty cache
	val, ok := cache.Get(ctx, "nonexistent")
	if ok {
		t.Error("Get on empty cache should return ok=false")
	}
	if val != nil {
		t.Error("Get on empty cache should return nil value")
	}

	key := "test-key"
	value := []byte("test-value")
	if err := cache.Set(ctx, key, value, 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Error("Get after Set should return ok=true")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := cache.Get(ctx, key); ok {
		t.Error("Get after Delete should return ok=false")
	}

	// Delete is idempotent
	if err := cache.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("Delete on non-existent key should not error, got: %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	key := "expiring-key"
	value := []byte("expiring-value")

	if err := cache.Set(ctx, key, value, 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Error("Get immediately after Set should return ok=true")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(ctx, key); ok {
		t.Error("Get after expiry should return ok=false")
	}
}

func TestMemoryCache_ZeroTTLNotCached(t *testing.T) {
	cache := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	if err := cache.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set with zero TTL failed: %v", err)
	}
	if _, ok := cache.Get(ctx, "key"); ok {
		t.Error("zero TTL should not cache")
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestMemoryCache_SetIdempotent(t *testing.T) {
	cache := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	value := []byte("value")
	for i := 0; i < 3; i++ {
		if err := cache.Set(ctx, "key", value, time.Minute); err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
	}

	if cache.Len() != 1 {
		t.Errorf("Len after repeated Set = %d, want 1", cache.Len())
	}
	got, ok := cache.Get(ctx, "key")
	if !ok || !bytes.Equal(got, value) {
		t.Errorf("Get = (%q, %v), want (%q, true)", got, ok, value)
	}
}

func TestMemoryCache_EvictionCapacityBound(t *testing.T) {
	cache := NewMemoryCache(Policy{DefaultTTL: time.Hour, MaxEntries: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := cache.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if cache.Len() != 3 {
		t.Errorf("Len after overflow = %d, want 3", cache.Len())
	}

	// Oldest two insertions were evicted, newest three retained.
	for i := 0; i < 2; i++ {
		if _, ok := cache.Get(ctx, fmt.Sprintf("key-%d", i)); ok {
			t.Errorf("key-%d should have been evicted", i)
		}
	}
	for i := 2; i < 5; i++ {
		if _, ok := cache.Get(ctx, fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("key-%d should have been retained", i)
		}
	}
}

// TestMemoryCache_EvictionLRUOrder covers the capacity=2 scenario:
// store A, B, access A, store C. B is least recently used and must go;
// A and C survive.
func TestMemoryCache_EvictionLRUOrder(t *testing.T) {
	cache := NewMemoryCache(Policy{DefaultTTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	mustSet := func(key string) {
		t.Helper()
		if err := cache.Set(ctx, key, []byte(key), time.Hour); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}

	mustSet("A")
	mustSet("B")

	// A becomes most recently used
	if _, ok := cache.Get(ctx, "A"); !ok {
		t.Fatal("A should be present")
	}

	mustSet("C")

	if _, ok := cache.Get(ctx, "B"); ok {
		t.Error("B should have been evicted as least recently used")
	}
	if _, ok := cache.Get(ctx, "A"); !ok {
		t.Error("A should have been retained")
	}
	if _, ok := cache.Get(ctx, "C"); !ok {
		t.Error("C should have been retained")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := cache.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", cache.Len())
	}

	// Clear is idempotent
	if err := cache.Clear(ctx); err != nil {
		t.Errorf("second Clear should not error, got: %v", err)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(Policy{DefaultTTL: time.Hour, MaxEntries: 64})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d", i%16)
				_ = cache.Set(ctx, key, []byte(key), time.Hour)
				cache.Get(ctx, key)
				if i%10 == 0 {
					_ = cache.Delete(ctx, key)
				}
			}
		}(g)
	}
	wg.Wait()

	if got := cache.Len(); got > 64 {
		t.Errorf("Len = %d, exceeds capacity bound 64", got)
	}
}
