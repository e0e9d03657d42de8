package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
)

func TestReleaseModeWritesJSON(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Name: "docqa", Env: "prod", GinMode: "release", LogLevel: "info"}}
	var buf bytes.Buffer

	NewWithWriter(cfg, &buf).Info("document indexed", "filename", "doc1.pdf")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "document indexed", entry["msg"])
	assert.Equal(t, "doc1.pdf", entry["filename"])
	assert.Equal(t, "docqa", entry["app"])
}

func TestLevelFiltersDebug(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{GinMode: "release", LogLevel: "warn"}}
	var buf bytes.Buffer

	log := NewWithWriter(cfg, &buf)
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
