package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CacheDirChecker verifies the cache directory exists and accepts
// writes, by creating and removing a probe file.
type CacheDirChecker struct {
	dir string
}

// NewCacheDirChecker creates a checker for the given cache directory.
func NewCacheDirChecker(dir string) *CacheDirChecker {
	return &CacheDirChecker{dir: dir}
}

// Name returns the name of this checker.
func (c *CacheDirChecker) Name() string {
	return "cachedir"
}

// Check writes a probe file into the cache directory and removes it.
func (c *CacheDirChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	info, err := os.Stat(c.dir)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("cache directory %s not accessible", c.dir),
			fmt.Errorf("%w: %v", ErrCacheDirUnwritable, err),
		)
	}
	if !info.IsDir() {
		return Unhealthy(
			fmt.Sprintf("%s is not a directory", c.dir),
			ErrCacheDirUnwritable,
		)
	}

	probe, err := os.CreateTemp(c.dir, ".probe-*")
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("cache directory %s not writable", c.dir),
			fmt.Errorf("%w: %v", ErrCacheDirUnwritable, err),
		)
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		// Writable but cleanup failed; stale probe files accumulate.
		return Degraded(fmt.Sprintf("probe file %s could not be removed", filepath.Base(name)))
	}

	return Healthy("cache directory writable").WithDetails(map[string]any{
		"dir": c.dir,
	})
}
