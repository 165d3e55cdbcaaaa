// Package logging provides structured logging for Rentwise Core.
//
// It wraps log/slog so every entry carries the service name and build
// version, with JSON output for production and text for development.
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords or raw tokens. Use Redact when a token needs to be
// correlated across log lines.
package logging
