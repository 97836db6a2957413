// Package server exposes the location-scoring service over HTTP.
//
// Routes:
//
//	GET  /api/locations   ranked event locations, scoring params as query args
//	GET  /api/datasets    row counts for the cached datasets
//	POST /api/cache/clear drop all cached computations (admin bearer token)
//	GET  /healthz         liveness probe
//	GET  /readyz          readiness probe with dependency checks
//	GET  /metrics         Prometheus metrics
package server
