package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citymetrics/parkscout/health"
	"github.com/citymetrics/parkscout/observe"
	"github.com/citymetrics/parkscout/score"
)

// locationsResponse is the payload for GET /api/locations.
type locationsResponse struct {
	Count     int              `json:"count"`
	Locations []score.Location `json:"locations"`
}

// datasetSummary is one dataset's entry in GET /api/datasets.
type datasetSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

func (s *Server) getLocations(c echo.Context) error {
	ctx := c.Request().Context()

	opts := score.Options{
		MinParkArea:        queryFloat(c, "min_park_area", s.cfg.Scoring.MinParkArea),
		MaxSubwayDistance:  queryFloat(c, "max_subway_distance", s.cfg.Scoring.MaxSubwayDistance),
		RestaurantRadius:   queryFloat(c, "restaurant_radius", s.cfg.Scoring.RestaurantRadius),
		MaxInspectionScore: queryFloat(c, "max_inspection_score", s.cfg.Scoring.MaxInspectionScore),
		TopPerBorough:      queryInt(c, "top_per_borough", s.cfg.Scoring.TopPerBorough),
	}

	parks, err := s.source.Parks(ctx)
	if err != nil {
		return s.upstreamError(c, "parks", err)
	}
	restaurants, err := s.source.Restaurants(ctx)
	if err != nil {
		return s.upstreamError(c, "restaurants", err)
	}
	stations, err := s.source.Stations(ctx)
	if err != nil {
		return s.upstreamError(c, "stations", err)
	}

	scorer, err := score.NewScorer(parks, restaurants, stations, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	locations, err := scorer.BestLocations()
	if err != nil {
		if errors.Is(err, score.ErrNoParks) || errors.Is(err, score.ErrNoStations) {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, locationsResponse{
		Count:     len(locations),
		Locations: locations,
	})
}

func (s *Server) getDatasets(c echo.Context) error {
	ctx := c.Request().Context()

	parks, err := s.source.Parks(ctx)
	if err != nil {
		return s.upstreamError(c, "parks", err)
	}
	restaurants, err := s.source.Restaurants(ctx)
	if err != nil {
		return s.upstreamError(c, "restaurants", err)
	}
	stations, err := s.source.Stations(ctx)
	if err != nil {
		return s.upstreamError(c, "stations", err)
	}

	return c.JSON(http.StatusOK, map[string][]datasetSummary{
		"datasets": {
			{Name: "parks", Rows: len(parks)},
			{Name: "restaurants", Rows: len(restaurants)},
			{Name: "subway_stations", Rows: len(stations)},
		},
	})
}

func (s *Server) clearCache(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.cache.Clear(ctx); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.logger.Info(ctx, "cache cleared",
		observe.Field{Key: "request_id", Value: c.Response().Header().Get(echo.HeaderXRequestID)})
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) readyz(c echo.Context) error {
	if s.agg == nil {
		return c.String(http.StatusOK, "OK")
	}

	results := s.agg.CheckAll(c.Request().Context())
	status := s.agg.OverallStatus(results)
	report := health.NewReport(status, results)

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) upstreamError(c echo.Context, name string, err error) error {
	s.logger.Error(c.Request().Context(), "dataset load failed",
		observe.Field{Key: "dataset", Value: name},
		observe.Field{Key: "error", Value: err.Error()})
	return echo.NewHTTPError(http.StatusBadGateway, "dataset "+name+" unavailable")
}

func queryFloat(c echo.Context, name string, fallback float64) float64 {
	if raw := c.QueryParam(name); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return fallback
}

func queryInt(c echo.Context, name string, fallback int) int {
	if raw := c.QueryParam(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
