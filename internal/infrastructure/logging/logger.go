package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared by every breeze component.
// Fields are alternating key/value pairs: key1, value1, key2, value2, ...
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Options controls how NewLogger builds the zerolog backend
type Options struct {
	Level     string    // debug, info, warn, error (defaults to info)
	Console   bool      // human readable output instead of JSON lines
	Output    io.Writer // defaults to os.Stderr
	Component string    // optional "component" field attached to every entry
}

// DefaultLogger writes structured entries through zerolog
type DefaultLogger struct {
	zl zerolog.Logger
}

// NewDefaultLogger creates a JSON logger at info level writing to stderr
func NewDefaultLogger() Logger {
	return NewLogger(Options{Level: "info"})
}

// NewLogger creates a logger from the given options
func NewLogger(opts Options) *DefaultLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}

	return &DefaultLogger{zl: ctx.Logger()}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &DefaultLogger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// fieldsToMap converts the variadic fields slice to a map.
// Non-string keys and a dangling trailing value are kept under indexed keys.
func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(fields)/2+1)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
			break
		}
		if key, ok := fields[i].(string); ok {
			result[key] = fields[i+1]
			continue
		}
		result[fmt.Sprintf("field_%d", i/2)] = fields[i]
		result[fmt.Sprintf("field_%d_value", i/2)] = fields[i+1]
	}

	return result
}

func (l *DefaultLogger) emit(ev *zerolog.Event, msg string, fields []interface{}) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(fieldsToMap(fields))
	}
	ev.Msg(msg)
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.emit(l.zl.Error(), msg, fields)
}

// RepositoryError is the subset of errors.RepositoryError needed for logging
// (declared here to avoid an import cycle)
type RepositoryError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogError logs an error with its classification when it carries one
func LogError(logger Logger, err error, operation string, context map[string]interface{}) {
	if logger == nil || err == nil {
		return
	}

	fields := []interface{}{"operation", operation}

	if repoErr, ok := err.(RepositoryError); ok {
		fields = append(fields,
			"error_code", repoErr.GetCode(),
			"retryable", repoErr.IsRetryable(),
			"timestamp", repoErr.GetTimestamp(),
		)
		for k, v := range repoErr.GetContext() {
			fields = append(fields, k, v)
		}
	} else {
		fields = append(fields, "error_type", fmt.Sprintf("%T", err))
	}

	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Error(err.Error(), fields...)
}

// LogOperation logs a completed operation and how long it took
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		return
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Debug("operation completed", fields...)
}
