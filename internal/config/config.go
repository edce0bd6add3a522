// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - All functions accept context.Context as the first parameter.
//   - Errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// LogFile enables a size-rotated log file in addition to stdout.
	LogFile          string `koanf:"log_file"`
	LogMaxSizeMB     int    `koanf:"log_max_size_mb"`
	LogMaxBackups    int    `koanf:"log_max_backups"`
	LogMaxAgeDays    int    `koanf:"log_max_age_days"`
	ShutdownTimeoutS int    `koanf:"shutdown_timeout_seconds"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the backend: memory or postgres.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`

	// Matchmaking knobs.
	RecencyWindow  int     `koanf:"recency_window"`
	Tolerance      float64 `koanf:"tolerance"`
	SampleFloor    float64 `koanf:"sample_floor"`
	SampleExponent float64 `koanf:"sample_exponent"`
	RatingRefMin   float64 `koanf:"rating_ref_min"`
	RatingRefMax   float64 `koanf:"rating_ref_max"`
	MaxRedraws     int     `koanf:"max_redraws"`

	// Rating knobs.
	KFactor           float64 `koanf:"k_factor"`
	MaxUpdateAttempts int     `koanf:"max_update_attempts"`

	// MaxStandingsLimit caps GET /api/standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `koanf:"secure_cookies"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		LogMaxSizeMB:      100,
		LogMaxBackups:     3,
		LogMaxAgeDays:     28,
		ShutdownTimeoutS:  10,
		Addr:              ":9080",
		Store:             StoreMemory,
		RecencyWindow:     20,
		Tolerance:         50,
		SampleFloor:       0.1,
		SampleExponent:    2,
		RatingRefMin:      1000,
		RatingRefMax:      2200,
		MaxRedraws:        3,
		KFactor:           32,
		MaxUpdateAttempts: 3,
		MaxStandingsLimit: 500,
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StorePostgres, c.Store)
	case c.Store == StorePostgres && strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.RecencyWindow < 0:
		return fmt.Errorf("%w: recency_window must not be negative", ErrInvalidConfig)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalidConfig)
	case c.SampleFloor <= 0 || c.SampleFloor > 1:
		return fmt.Errorf("%w: sample_floor must be in (0, 1]", ErrInvalidConfig)
	case c.SampleExponent <= 1:
		return fmt.Errorf("%w: sample_exponent must be greater than 1", ErrInvalidConfig)
	case c.RatingRefMax <= c.RatingRefMin:
		return fmt.Errorf("%w: rating_ref_max must exceed rating_ref_min", ErrInvalidConfig)
	case c.MaxRedraws < 0:
		return fmt.Errorf("%w: max_redraws must not be negative", ErrInvalidConfig)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive", ErrInvalidConfig)
	case c.MaxUpdateAttempts < 1:
		return fmt.Errorf("%w: max_update_attempts must be at least 1", ErrInvalidConfig)
	case c.MaxStandingsLimit < 1:
		return fmt.Errorf("%w: max_standings_limit must be at least 1", ErrInvalidConfig)
	}
	return nil
}
