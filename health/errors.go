package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCacheDirUnwritable indicates the cache directory cannot be
	// written to.
	ErrCacheDirUnwritable = errors.New("health: cache directory not writable")

	// ErrUpstreamUnavailable indicates the data portal is unreachable or
	// returning server errors.
	ErrUpstreamUnavailable = errors.New("health: upstream unavailable")
)
