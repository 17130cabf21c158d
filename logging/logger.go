// Package logging wraps zerolog with the component-tagged logger used across
// the indexer.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ComponentLogger provides structured logging for indexer components.
type ComponentLogger struct {
	logger    zerolog.Logger
	component string
}

// NewComponentLogger creates a logger tagged with the component name.
func NewComponentLogger(component string) *ComponentLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Logger()

	return &ComponentLogger{
		logger:    logger,
		component: component,
	}
}

// SetGlobalLevel applies the configured level process-wide.
func SetGlobalLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// Debug returns a debug level event
func (cl *ComponentLogger) Debug() *zerolog.Event {
	return cl.logger.Debug()
}

// Info returns an info level event
func (cl *ComponentLogger) Info() *zerolog.Event {
	return cl.logger.Info()
}

// Warn returns a warn level event
func (cl *ComponentLogger) Warn() *zerolog.Event {
	return cl.logger.Warn()
}

// Error returns an error level event
func (cl *ComponentLogger) Error() *zerolog.Event {
	return cl.logger.Error()
}

// Fatal returns a fatal level event
func (cl *ComponentLogger) Fatal() *zerolog.Event {
	return cl.logger.Fatal()
}

// With returns a child logger carrying an extra string field.
func (cl *ComponentLogger) With(key, value string) *ComponentLogger {
	return &ComponentLogger{
		logger:    cl.logger.With().Str(key, value).Logger(),
		component: cl.component,
	}
}
