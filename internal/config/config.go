package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the match service.
// Environment variables are parsed from the SKILLLOOP_ prefix.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Store driver: postgres, sqlite or memory.
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:""`

	// API keys. Comma-separated key:actorID pairs per role.
	AdminKeys  string `envconfig:"ADMIN_KEYS" default:""`
	SalesKeys  string `envconfig:"SALES_KEYS" default:""`
	MemberKeys string `envconfig:"MEMBER_KEYS" default:""`

	// DevMode accepts any bearer token as an admin actor. Local only.
	DevMode bool `envconfig:"DEV_MODE" default:"false"`
}

// ResolveDefaults derives the DB driver when set to "auto" or empty and
// validates the selection against the configured backends.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		switch {
		case c.PostgresDSN != "":
			c.DBDriver = "postgres"
		case c.SQLitePath != "":
			c.DBDriver = "sqlite"
		default:
			c.DBDriver = "memory"
		}
	}

	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER is postgres but POSTGRES_DSN is empty")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DB_DRIVER is sqlite but SQLITE_PATH is empty")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a Config from environment variables.
// Example: SKILLLOOP_HTTP_PORT, SKILLLOOP_DB_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SKILLLOOP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Bool("dev_mode", cfg.DevMode).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("sqlite_path", cfg.SQLitePath).
		Msg("configuration loaded")

	return &cfg, nil
}
