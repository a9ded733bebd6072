package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Backend, cfg.Backend)
	assert.Equal(t, "lenient", cfg.PayloadMode)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.RulesFiles)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TRUSTLEDGER_BACKEND", "sqlite")
	t.Setenv("TRUSTLEDGER_PAYLOAD_MODE", "strict")
	t.Setenv("TRUSTLEDGER_LOG_LEVEL", "debug")
	t.Setenv("TRUSTLEDGER_LOG_FORMAT", "json")
	t.Setenv("TRUSTLEDGER_RULES", "a.cue,b.cue")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Backend:     BackendSQLite,
		PayloadMode: "strict",
		LogLevel:    "debug",
		LogFormat:   "json",
		RulesFiles:  []string{"a.cue", "b.cue"},
	}, cfg)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"TRUSTLEDGER_BACKEND", "postgres", "invalid backend"},
		{"TRUSTLEDGER_PAYLOAD_MODE", "loose", "invalid payload mode"},
		{"TRUSTLEDGER_LOG_LEVEL", "loud", "invalid log level"},
		{"TRUSTLEDGER_LOG_FORMAT", "xml", "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg struct {
		Port int `env:"TRUSTLEDGER_TEST_PORT"`
	}
	t.Setenv("TRUSTLEDGER_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("INFO")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{LogLevel: "info", LogFormat: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("event appended", "event_id", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "event appended", line["msg"])
	assert.Equal(t, float64(1), line["event_id"])
}

func TestNewLogger_TextFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Default(), &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
