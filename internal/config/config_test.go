package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
database:
  driver: postgres
  dsn: postgres://localhost/crm
catalog:
  file: catalog.yaml
validator:
  tables:
    Case: support_cases
nats:
  url: nats://127.0.0.1:4222
session:
  idle_timeout: 5m
logging:
  level: debug
editor:
  validate_on_change: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "condexpr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load([]string{"--config", writeConfig(t, sampleConfig)})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/crm", cfg.Database.DSN)
	assert.Equal(t, "catalog.yaml", cfg.Catalog.File)
	assert.Equal(t, map[string]string{"case": "support_cases"}, cfg.Validator.Tables)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "condexpr.expressions", cfg.NATS.Subject, "default kept")
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Editor.ValidateOnChange)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"--config", writeConfig(t, "{}\n")})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Editor.ValidateOnChange)
}

func TestLoad_EnvAndFlagsOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("CONDEXPR_NATS_SUBJECT", "filters")
	t.Setenv("CONDEXPR_SERVER_PORT", "7070")

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "filters", cfg.NATS.Subject)
	assert.Equal(t, 7070, cfg.Server.Port)

	cfg, err = Load([]string{"--config", path, "--port", "6060", "--log-level", "warn", "--unknown"})
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port, "flag beats env")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load([]string{"--config", writeConfig(t, "server: [\n")})
	assert.Error(t, err)

	_, err = Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	var buf bytes.Buffer
	l := cfg.NewLogger(&buf)
	l.Info("hidden")
	l.Warn("shown", "entity", "Case")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "Case", rec["entity"])
}
