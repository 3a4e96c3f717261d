package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/inferworker/internal/env"
	"github.com/ekisa-team/inferworker/internal/envvar"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithOutput(&buf), WithLevel(slog.LevelInfo))

	log.Debug("Hidden")
	log.Info("Server started", "name", "ollama")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Server started", rec["msg"])
	assert.Equal(t, "ollama", rec["name"])
}

func TestNew_DevelopmentUsesTint(t *testing.T) {
	var buf bytes.Buffer
	New(env.Development, WithOutput(&buf)).Info("Server started")

	assert.Contains(t, buf.String(), "Server started")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_LogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	var buf bytes.Buffer
	New(env.Production, WithOutput(&buf), WithLogToFile(true), WithLogFile(path)).Warn("Degraded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Degraded")
	assert.Contains(t, buf.String(), "Degraded")
}

func TestLevelFromEnv(t *testing.T) {
	for value, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		t.Setenv(envvar.InferworkerLogLevel, value)
		assert.Equal(t, want, LevelFromEnv(), value)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envvar.InferworkerEnv, "development")
	assert.True(t, env.FromEnv().IsDevelopment())

	t.Setenv(envvar.InferworkerEnv, "")
	assert.Equal(t, env.Production, env.FromEnv())
}
