// Package logger configures the process-wide slog logger and derives
// component- and worker-scoped loggers from it.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the default logger writing to stderr, leaving stdout free
// for command output such as retrieved facts.
func Setup(level string, format string) {
	SetupWriter(os.Stderr, level, format)
}

func SetupWriter(w io.Writer, level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// WithWorker returns the logger used by worker builder index.
func WithWorker(component string, index int) *slog.Logger {
	return slog.Default().With("component", component, "worker", index)
}

func parseLevel(level string) slog.Level {
	switch level {
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
