// Package health reports whether the service can do useful work.
//
// A Checker probes one dependency (the cache directory, the upstream
// data portal) and returns a Result with a Status of healthy, degraded,
// or unhealthy. The Aggregator runs all registered checkers in parallel
// under a shared timeout and folds their results into an overall status
// for the readiness endpoint.
//
//	agg := health.NewAggregator()
//	agg.Register("cachedir", health.NewCacheDirChecker(cfg.Cache.Dir))
//	agg.Register("upstream", health.NewUpstreamChecker(cfg.Socrata.Host, nil))
//
//	results := agg.CheckAll(ctx)
//	if agg.OverallStatus(results) == health.StatusUnhealthy {
//	    // fail the readiness probe
//	}
package health
