// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Fallback chain transitions per request
//   - Quota allowance computations
//
// Info: Normal operation events
//   - Successful upstream calls and cache fills
//   - Daily quota rollover
//   - Server startup/shutdown, sweep results
//
// Warn: Warning conditions that don't prevent operation
//   - Quota budget nearly exhausted (buffer reached)
//   - Retry attempts against the upstream API
//   - Cache/ledger write failures (swallowed on the request path)
//   - Stale or static fallback served
//
// Error: Error conditions requiring attention
//   - Upstream failures after retry exhaustion
//   - Ledger store unavailable (fail-closed, upstream skipped)
//   - Configuration errors
//
// Context Fields:
//   - operation: logical operation (search, recipe, ingredients, random)
//   - cache_key: derived cache key
//   - source: answer source (fresh_cache, upstream, stale_cache, static)
//   - status_code: upstream HTTP status code
//   - duration: request duration
//   - error_class: error classification (client, server, quota, network)
//   - remaining: remaining daily quota
//   - ttl: cache entry TTL
