package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrSerialize wraps payload encode/decode failures. On the read path a
	// payload that cannot be decoded is treated as a miss, never surfaced.
	ErrSerialize = errors.New("cache: payload serialization failed")

	// ErrStorage wraps durable-store I/O failures. Storage errors are
	// reported to the caller but are never fatal to the process.
	ErrStorage = errors.New("cache: storage failure")
)

// Cache is the interface for caching computation results.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get never errors; it returns (nil, false) on miss, expiry,
//   or a corrupted entry. Delete and Clear are idempotent.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. TTL=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Clear removes all cached values. Idempotent.
	Clear(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
