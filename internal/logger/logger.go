package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"docqa/internal/config"
)

// New builds the process logger. Debug gin mode gets a readable text handler
// with source locations; anything else gets JSON.
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.App.LogLevel),
		AddSource: cfg.App.GinMode == "debug",
	}

	var handler slog.Handler
	if cfg.App.GinMode == "debug" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("app", cfg.App.Name, "env", cfg.App.Env)
}

// Discard is used by tests and by components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
