package errors

import (
	"fmt"

	"breeze/internal/infrastructure/logging"
)

// LoggerBridge routes retry messages into a logging.Logger
type LoggerBridge struct {
	logger logging.Logger
}

func NewLoggerBridge(logger logging.Logger) RetryLogger {
	return &LoggerBridge{logger: logger}
}

func (b *LoggerBridge) Printf(format string, v ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(fmt.Sprintf(format, v...), "source", "retry")
	}
}
