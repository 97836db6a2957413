// Command parkscout serves ranked NYC event locations over HTTP,
// backed by a disk-persistent computation cache for the open-data
// downloads it depends on.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/citymetrics/parkscout/cache"
	"github.com/citymetrics/parkscout/config"
	"github.com/citymetrics/parkscout/dataset"
	"github.com/citymetrics/parkscout/health"
	"github.com/citymetrics/parkscout/observe"
	"github.com/citymetrics/parkscout/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: cfg.Observe.ServiceName,
		Version:     cfg.Observe.Version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.Observe.TracingEnabled,
			Exporter:  cfg.Observe.TracingExporter,
			SamplePct: cfg.Observe.TracingSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  cfg.Observe.MetricsEnabled,
			Exporter: cfg.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   cfg.Observe.LogLevel,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		log.Fatalf("failed to build operation middleware: %v", err)
	}

	// Cache: in-memory hot layer over disk persistence.
	policy := cache.Policy{
		DefaultTTL: cfg.Cache.DefaultTTL,
		MaxTTL:     cfg.Cache.MaxTTL,
		MaxEntries: cfg.Cache.MaxEntries,
	}
	disk, err := cache.NewDiskCache(cfg.Cache.Dir, policy)
	if err != nil {
		log.Fatalf("failed to open cache directory %s: %v", cfg.Cache.Dir, err)
	}
	tiered := cache.NewTieredCache(cache.NewMemoryCache(policy), disk)
	memo := cache.NewMemoizer(tiered, nil, policy)

	client := dataset.NewClient(dataset.ClientConfig{
		Host:     cfg.Socrata.Host,
		AppToken: cfg.Socrata.AppToken,
		Timeout:  cfg.Socrata.Timeout,
	})
	loader := dataset.NewLoader(client, memo, mw, logger, cfg.Socrata.RowLimit)

	agg := health.NewAggregator(0)
	agg.Register("cachedir", health.NewCacheDirChecker(cfg.Cache.Dir))
	agg.Register("upstream", health.NewUpstreamChecker(cfg.Socrata.Host, nil))

	srv := server.New(cfg, server.Deps{
		Source: loader,
		Cache:  tiered,
		Health: agg,
		Logger: logger,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error(ctx, "server stopped", observe.Field{Key: "error", Value: err.Error()})
		}
	}()
	logger.Info(ctx, "server started", observe.Field{Key: "addr", Value: cfg.Server.Addr()})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "forced shutdown", observe.Field{Key: "error", Value: err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "telemetry shutdown failed", observe.Field{Key: "error", Value: err.Error()})
	}
}
