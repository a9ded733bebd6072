// Package config loads TrustLedger settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Backend names the journal implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Config holds process-wide settings. CLI flags override fields after Load.
type Config struct {
	Backend     Backend  `env:"TRUSTLEDGER_BACKEND" envDefault:"memory"`
	PayloadMode string   `env:"TRUSTLEDGER_PAYLOAD_MODE" envDefault:"lenient"`
	LogLevel    string   `env:"TRUSTLEDGER_LOG_LEVEL" envDefault:"warn"`
	LogFormat   string   `env:"TRUSTLEDGER_LOG_FORMAT" envDefault:"text"`
	RulesFiles  []string `env:"TRUSTLEDGER_RULES" envSeparator:","`
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Backend:     BackendMemory,
		PayloadMode: "lenient",
		LogLevel:    "warn",
		LogFormat:   "text",
	}
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend %q: must be %q or %q", c.Backend, BackendMemory, BackendSQLite)
	}

	switch c.PayloadMode {
	case "", "lenient", "strict":
	default:
		return fmt.Errorf("invalid payload mode %q: must be \"lenient\" or \"strict\"", c.PayloadMode)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be \"text\" or \"json\"", c.LogFormat)
	}

	for _, f := range c.RulesFiles {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("invalid rules list: empty file name")
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. The empty string means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
}

// NewLogger builds the process logger writing to w.
// Invalid settings fall back to a warn-level text handler; call Validate first
// to surface them.
func NewLogger(c Config, w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
