// Package logger provides the shared structured logging setup using slog.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config controls how the JSON logger is built.
type Config struct {
	// Output receives the log records (defaults to os.Stdout).
	Output io.Writer
	// Level is the minimum level that gets emitted.
	Level slog.Level
	// AddSource annotates records with the caller position.
	AddSource bool
}

// DefaultConfig returns the info-level stdout configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Output: os.Stdout,
	}
}

// New creates a JSON logger from cfg. A nil cfg or output falls back to
// the defaults.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}))
}

// NewDefault creates a JSON logger with the default configuration.
func NewDefault() *slog.Logger {
	return New(DefaultConfig())
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to their
// slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
