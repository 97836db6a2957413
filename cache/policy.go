package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, caching is disabled by default.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// MaxEntries bounds the number of entries a store may hold. Once
	// exceeded, least-recently-used entries are evicted (ties broken by
	// oldest creation time). If zero, the store is unbounded.
	MaxEntries int
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 24 hours, MaxTTL: 7 days, MaxEntries: 256.
// City open-data sets refresh roughly daily, so a day-long default keeps
// results fresh without re-downloading on every request.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 24 * time.Hour,
		MaxTTL:     7 * 24 * time.Hour,
		MaxEntries: 256,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{
		DefaultTTL: 0,
		MaxTTL:     0,
		MaxEntries: 0,
	}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	// Use default if no override (or negative override)
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
