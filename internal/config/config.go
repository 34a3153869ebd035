// Package config loads server settings from GALAJUDGE_* environment
// variables, with command line flags taking precedence.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/abrezinsky/galajudge/internal/models"
)

// Config holds the server configuration
type Config struct {
	Port          int           `env:"GALAJUDGE_PORT" envDefault:"8080"`
	DB            string        `env:"GALAJUDGE_DB" envDefault:"galajudge.db"`
	AdminPassword string        `env:"GALAJUDGE_ADMIN_PASSWORD"`
	LogLevel      string        `env:"GALAJUDGE_LOG_LEVEL" envDefault:"info"`
	Debounce      time.Duration `env:"GALAJUDGE_DEBOUNCE" envDefault:"2s"`
	BusyRetry     time.Duration `env:"GALAJUDGE_BUSY_RETRY" envDefault:"250ms"`
	SessionTTL    time.Duration `env:"GALAJUDGE_SESSION_TTL" envDefault:"24h"`
	Seed          bool          `env:"GALAJUDGE_SEED" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment into a Config and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BindFlags registers a flag for each setting, defaulting to the current
// value so that flags override the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.DB, "db", c.DB, "SQLite database path")
	fs.StringVar(&c.AdminPassword, "adminpw", c.AdminPassword, "Admin password (auto-generated if not set)")
	fs.StringVar(&c.LogLevel, "loglevel", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.DurationVar(&c.Debounce, "debounce", c.Debounce, "Quiet period before an edited note is saved")
	fs.DurationVar(&c.BusyRetry, "busyretry", c.BusyRetry, "Delay before retrying a save queued behind another")
	fs.DurationVar(&c.SessionTTL, "sessionttl", c.SessionTTL, "Lifetime of admin and judge sessions")
	fs.BoolVar(&c.Seed, "seed", c.Seed, "Load demo data into an empty database")
}

// Validate checks values that the environment parser cannot
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DB == "" {
		return fmt.Errorf("database path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Debounce < 0 || c.BusyRetry < 0 {
		return fmt.Errorf("save timings must not be negative")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ClientSettings returns the save timings published to judge clients
func (c *Config) ClientSettings() models.ClientSettings {
	return models.NewClientSettings(c.Debounce, c.BusyRetry)
}
