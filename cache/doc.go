// Package cache provides a disk-backed computation cache with an
// in-memory layer for hot reads.
//
// It provides a Cache interface with memory, disk, and tiered
// implementations, SHA-256-based key derivation, LRU eviction under a
// capacity bound, and a Memoizer that wraps expensive computations.
package cache
