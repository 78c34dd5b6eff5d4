// Package logger configures the process-wide zerolog logger and hands out
// component-scoped sub-loggers.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global, component-less logger. Prefer the component
// constructors below inside a package.
var Log zerolog.Logger

// Initialize sets up the global logger. Production mode emits line-delimited
// JSON to the configured log file path (or stdout if empty); non-production
// emits a pretty console writer.
func Initialize(level string, production bool, logFilePath string) error {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	var out *os.File = os.Stdout
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		out = f
	}

	if production {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	Log = log.Logger.With().Str("service", "mealpedant-api").Logger()
	Log.Info().Str("level", logLevel.String()).Bool("production", production).Msg("logger initialized")
	return nil
}

// Auth returns a logger scoped to the authentication state machine.
func Auth() *zerolog.Logger {
	l := Log.With().Str("component", "auth").Logger()
	return &l
}

// Database returns a logger scoped to the relational store.
func Database() *zerolog.Logger {
	l := Log.With().Str("component", "database").Logger()
	return &l
}

// KV returns a logger scoped to the Redis-backed cache client.
func KV() *zerolog.Logger {
	l := Log.With().Str("component", "kv").Logger()
	return &l
}

// HTTP returns a logger scoped to request handling.
func HTTP() *zerolog.Logger {
	l := Log.With().Str("component", "http").Logger()
	return &l
}

// Photo returns a logger scoped to the photo pipeline.
func Photo() *zerolog.Logger {
	l := Log.With().Str("component", "photo").Logger()
	return &l
}

// Backup returns a logger scoped to the backup scheduler.
func Backup() *zerolog.Logger {
	l := Log.With().Str("component", "backup").Logger()
	return &l
}

// Email returns a logger scoped to outbound notification delivery.
func Email() *zerolog.Logger {
	l := Log.With().Str("component", "email").Logger()
	return &l
}
