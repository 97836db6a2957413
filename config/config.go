// Package config loads service configuration from the environment,
// with optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Socrata SocrataConfig
	Scoring ScoringConfig
	Observe ObserveConfig
	Admin   AdminConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// CacheConfig configures the disk-backed computation cache.
type CacheConfig struct {
	// Dir is the cache directory, created at startup if absent.
	Dir        string
	MaxEntries int
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// SocrataConfig configures the NYC Open Data client.
type SocrataConfig struct {
	Host     string
	AppToken string
	Timeout  time.Duration
	RowLimit int
}

// ScoringConfig holds default scoring parameters; requests may override
// them per call.
type ScoringConfig struct {
	MinParkArea        float64
	MaxSubwayDistance  float64
	RestaurantRadius   float64
	MaxInspectionScore float64
	TopPerBorough      int
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName      string
	Version          string
	TracingEnabled   bool
	TracingExporter  string
	TracingSamplePct float64
	MetricsEnabled   bool
	MetricsExporter  string
	LogLevel         string
}

// AdminConfig configures the admin surface. An empty JWTSecret disables
// admin routes entirely.
type AdminConfig struct {
	JWTSecret string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present. Values containing
// ${VAR} references are expanded and error when VAR is unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8501"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Dir:        getEnv("CACHE_DIR", "cache"),
			MaxEntries: getIntEnv("CACHE_MAX_ENTRIES", 256),
			DefaultTTL: getDurationEnv("CACHE_DEFAULT_TTL", 24*time.Hour),
			MaxTTL:     getDurationEnv("CACHE_MAX_TTL", 7*24*time.Hour),
		},
		Socrata: SocrataConfig{
			Host:     getEnv("SOCRATA_HOST", "https://data.cityofnewyork.us"),
			AppToken: getEnv("SOCRATA_APP_TOKEN", ""),
			Timeout:  getDurationEnv("SOCRATA_TIMEOUT", 30*time.Second),
			RowLimit: getIntEnv("SOCRATA_ROW_LIMIT", 5000),
		},
		Scoring: ScoringConfig{
			MinParkArea:        getFloatEnv("SCORING_MIN_PARK_AREA", 5.0),
			MaxSubwayDistance:  getFloatEnv("SCORING_MAX_SUBWAY_DISTANCE", 500),
			RestaurantRadius:   getFloatEnv("SCORING_RESTAURANT_RADIUS", 500),
			MaxInspectionScore: getFloatEnv("SCORING_MAX_INSPECTION_SCORE", 20),
			TopPerBorough:      getIntEnv("SCORING_TOP_PER_BOROUGH", 3),
		},
		Observe: ObserveConfig{
			ServiceName:      getEnv("OBSERVE_SERVICE_NAME", "parkscout"),
			Version:          getEnv("OBSERVE_VERSION", "dev"),
			TracingEnabled:   getBoolEnv("TRACING_ENABLED", false),
			TracingExporter:  getEnv("TRACING_EXPORTER", "stdout"),
			TracingSamplePct: getFloatEnv("TRACING_SAMPLE_PCT", 1.0),
			MetricsEnabled:   getBoolEnv("METRICS_ENABLED", true),
			MetricsExporter:  getEnv("METRICS_EXPORTER", "prometheus"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
	}

	// Secret-bearing values may reference other environment variables.
	var err error
	if cfg.Socrata.AppToken, err = ExpandEnvStrict(cfg.Socrata.AppToken); err != nil {
		return nil, fmt.Errorf("config: SOCRATA_APP_TOKEN: %w", err)
	}
	if cfg.Admin.JWTSecret, err = ExpandEnvStrict(cfg.Admin.JWTSecret); err != nil {
		return nil, fmt.Errorf("config: ADMIN_JWT_SECRET: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("config: CACHE_MAX_ENTRIES must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.DefaultTTL < 0 || c.Cache.MaxTTL < 0 {
		return fmt.Errorf("config: cache TTLs must not be negative")
	}
	if c.Socrata.RowLimit <= 0 {
		return fmt.Errorf("config: SOCRATA_ROW_LIMIT must be positive, got %d", c.Socrata.RowLimit)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("config: SERVER_PORT %q is not a port number", c.Server.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
