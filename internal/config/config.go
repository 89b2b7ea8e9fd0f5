// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/veryx/veryx/internal/filestore"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config is the process configuration.
type Config struct {
	Env      string `env:"VERYX_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPAddr        string        `env:"VERYX_HTTP_ADDR" envDefault:":5000"`
	ShutdownTimeout time.Duration `env:"VERYX_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Store       string `env:"VERYX_STORE" envDefault:"sqlite"`
	SQLitePath  string `env:"VERYX_SQLITE_PATH" envDefault:"veryx.db"`
	DatabaseURL string `env:"VERYX_DATABASE_URL"`
	FilePath    string `env:"VERYX_FILE_PATH" envDefault:"veryx-events.jsonl"`

	// CorruptPolicy applies to the file backend only.
	CorruptPolicy string `env:"VERYX_CORRUPT_POLICY" envDefault:"fail"`

	AppendMaxTries uint `env:"VERYX_APPEND_MAX_TRIES" envDefault:"5"`
}

// parseEnv loads configuration from environment variables.
func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment, applies overrides in order, and validates
// the result.
func Load(overrides ...func(*Config)) (Config, error) {
	var cfg Config
	if err := parseEnv(&cfg); err != nil {
		return Config{}, err
	}
	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the store selection and its settings.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))

	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("VERYX_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("VERYX_DATABASE_URL is required for the postgres store")
		}
	case StoreFile:
		if c.FilePath == "" {
			return errors.New("VERYX_FILE_PATH is required for the file store")
		}
	default:
		return fmt.Errorf("unknown store %q (want sqlite, postgres or file)", c.Store)
	}

	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.AppendMaxTries == 0 {
		return errors.New("VERYX_APPEND_MAX_TRIES must be at least 1")
	}
	return nil
}

// Policy returns the parsed corrupt-log policy.
func (c Config) Policy() (filestore.CorruptPolicy, error) {
	return filestore.ParseCorruptPolicy(c.CorruptPolicy)
}
