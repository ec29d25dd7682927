package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int `env:"PORT" envDefault:"3000"`

	// NASAAPIKey authenticates APOD and NeoWs calls.
	NASAAPIKey string `env:"NASA_API_KEY" envDefault:"DEMO_KEY"`

	NASAAPIURL    string `env:"NASA_API_URL" envDefault:"https://api.nasa.gov"`
	NASAImagesURL string `env:"NASA_IMAGES_URL" envDefault:"https://images-api.nasa.gov"`

	// NASACallTimeout bounds each upstream call made by a lane tier.
	NASACallTimeout time.Duration `env:"NASA_CALL_TIMEOUT" envDefault:"8s"`

	// NASARateLimit is the sustained outbound request rate per second; zero
	// disables limiting.
	NASARateLimit float64 `env:"NASA_RATE_LIMIT" envDefault:"5"`
	NASARateBurst int     `env:"NASA_RATE_BURST" envDefault:"10"`

	// DatabaseURL selects the store: postgres:// URLs use PostgreSQL, anything
	// else is a SQLite path or file: URI.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:space-feeds.db"`

	// SeedTimezone is the IANA zone that decides when the daily seed rolls
	// over.
	SeedTimezone string `env:"SEED_TIMEZONE" envDefault:"UTC"`

	// CachePath is the BoltDB file for upstream responses. Empty keeps the
	// cache in memory.
	CachePath          string        `env:"CACHE_PATH"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CachePruneInterval time.Duration `env:"CACHE_PRUNE_INTERVAL" envDefault:"10m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

// Location returns the loaded seed timezone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// UsesPostgres reports whether DatabaseURL points at a PostgreSQL server.
func (c *Config) UsesPostgres() bool {
	u := strings.ToLower(c.DatabaseURL)
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	loc, err := time.LoadLocation(cfg.SeedTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_TIMEZONE: %w", err)
	}
	cfg.location = loc

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.NASACallTimeout <= 0 {
		return nil, fmt.Errorf("NASA_CALL_TIMEOUT must be positive")
	}
	if cfg.CacheTTL <= 0 || cfg.CachePruneInterval <= 0 {
		return nil, fmt.Errorf("CACHE_TTL and CACHE_PRUNE_INTERVAL must be positive")
	}

	return &cfg, nil
}

// NewLogger builds the JSON logger used by every component.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
