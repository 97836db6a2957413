package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/citymetrics/parkscout/observe"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

func newRequestID() string {
	return uuid.NewString()
}

// requestLogging emits one structured line per request.
func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(c.Request().Context(), "http request",
				observe.Field{Key: "method", Value: c.Request().Method},
				observe.Field{Key: "path", Value: c.Path()},
				observe.Field{Key: "status", Value: c.Response().Status},
				observe.Field{Key: "duration_ms", Value: float64(time.Since(start).Microseconds()) / 1000},
				observe.Field{Key: "request_id", Value: c.Response().Header().Get(echo.HeaderXRequestID)},
			)
			return err
		}
	}
}

// collectHTTPMetrics records request counts and latencies per route.
func collectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			requestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			requestDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// requireAdmin gates a route behind an HS256 bearer token signed with
// the admin secret. An empty secret disables the route entirely.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := s.cfg.Admin.JWTSecret
			if secret == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "admin routes disabled")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header || strings.TrimSpace(tokenString) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			return next(c)
		}
	}
}
