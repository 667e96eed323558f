// Package logger builds the application's slog logger from configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// New initializes a slog logger from the configuration. An explicit
// output writer overrides the configured destination, which tests use to
// capture log lines.
func New(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = resolveOutput(cfg.Output)
	}

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler)
}

func resolveOutput(name string) io.Writer {
	switch name {
	case "stderr":
		return os.Stderr
	case "file":
		file, err := os.OpenFile("hook-warden.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			slog.Error("failed to open log file, falling back to stdout", "error", err)
			return os.Stdout
		}
		return file
	default:
		return os.Stdout
	}
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
