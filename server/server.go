package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/citymetrics/parkscout/cache"
	"github.com/citymetrics/parkscout/config"
	"github.com/citymetrics/parkscout/dataset"
	"github.com/citymetrics/parkscout/health"
	"github.com/citymetrics/parkscout/observe"
)

// DataSource provides the cleaned datasets the scoring handlers rank.
// *dataset.Loader satisfies it.
type DataSource interface {
	Parks(ctx context.Context) ([]dataset.Park, error)
	Restaurants(ctx context.Context) ([]dataset.Restaurant, error)
	Stations(ctx context.Context) ([]dataset.Station, error)
	Invalidate(ctx context.Context) error
}

var _ DataSource = (*dataset.Loader)(nil)

// Deps carries the collaborators the server needs.
type Deps struct {
	Source DataSource
	Cache  cache.Cache
	Health *health.Aggregator
	Logger observe.Logger
}

// Server is the HTTP front end.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	source DataSource
	cache  cache.Cache
	agg    *health.Aggregator
	logger observe.Logger
}

// New assembles the server with its routes and middleware.
func New(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger := deps.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	s := &Server{
		echo:   e,
		cfg:    cfg,
		source: deps.Source,
		cache:  deps.Cache,
		agg:    deps.Health,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomiddleware.Recover())
	s.echo.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: newRequestID,
	}))
	s.echo.Use(s.requestLogging())
	s.echo.Use(collectHTTPMetrics())
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/readyz", s.readyz)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api")
	api.GET("/locations", s.getLocations)
	api.GET("/datasets", s.getDatasets)
	api.POST("/cache/clear", s.clearCache, s.requireAdmin())
}

// Start runs the listener until it fails or Shutdown is called.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	s.logger.Info(context.Background(), "starting http server", observe.Field{Key: "addr", Value: srv.Addr})
	return s.echo.StartServer(srv)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
