// Package config loads server settings from the environment
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name
const EnvPrefix = "TTT_"

// Config holds server settings
type Config struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"8080"`

	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`

	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"tictactoe"`
	JWTTokenTTL time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// AllowedOrigins lists browser origins allowed to open a WebSocket.
	// Empty means same-origin only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads the process environment
func Load() (Config, error) {
	return load(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads the given variables instead of the process environment
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem with the settings at once
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%sPORT must be between 1 and 65535, got %d", EnvPrefix, c.Port))
	}

	switch c.StorageType {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%sREDIS_URL required when %sSTORAGE_TYPE=redis", EnvPrefix, EnvPrefix))
		}
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%sSQLITE_PATH required when %sSTORAGE_TYPE=sqlite", EnvPrefix, EnvPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%sSTORAGE_TYPE must be memory, redis or sqlite, got %q", EnvPrefix, c.StorageType))
	}

	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("%sJWT_SECRET is required", EnvPrefix))
	}
	if c.JWTTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sJWT_TOKEN_TTL must be positive", EnvPrefix))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err)
	}
	return level, nil
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
