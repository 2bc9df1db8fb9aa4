// Package config loads the example application's configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Supported event store engines.
const (
	EngineMemory   = "memory"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// Config holds the example application's settings.
type Config struct {
	Engine          string `env:"EVENTSTORE_ENGINE" envDefault:"memory"`
	PostgresDSN     string `env:"POSTGRES_DSN"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"events.db"`
	EventsTableName string `env:"EVENTS_TABLE_NAME" envDefault:"events"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg, parseErr := env.ParseAs[Config]()
	if parseErr != nil {
		return Config{}, parseErr
	}

	switch cfg.Engine {
	case EngineMemory, EngineSQLite:
	case EnginePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN must be set when EVENTSTORE_ENGINE is %q", EnginePostgres)
		}
	default:
		return Config{}, fmt.Errorf("unsupported event store engine: %q", cfg.Engine)
	}

	return cfg, nil
}

// SlogLevel maps the configured log level onto slog's levels, defaulting to
// info for unknown values.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
