package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "rentwise"

// Logger wraps slog.Logger with Rentwise defaults.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from the logging section of the configuration.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return newWithWriter(output, cfg, version)
}

// newWithWriter builds the handler chain on an arbitrary writer.
func newWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel converts a string log level to slog.Level.
// Unrecognised values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a new Logger with additional default attributes.
//
//	authLogger := logger.With("component", "auth")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON info-level logger for use before configuration is loaded.
func Default() *Logger {
	return newWithWriter(os.Stdout, config.LoggingConfig{Level: "info", Format: "json"}, "unknown")
}

// redactKeep is how many leading characters Redact preserves.
const redactKeep = 8

// Redact shortens a secret to a loggable prefix.
func Redact(secret string) string {
	if len(secret) <= redactKeep {
		return "***"
	}
	return secret[:redactKeep] + "..."
}
