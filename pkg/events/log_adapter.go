package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/ghuser/bookcatalog/pkg/logger"
)

// watermillLogger routes Watermill's internal logs into logger.Logger.
// Watermill's trace level maps to debug.
type watermillLogger struct{ log logger.Logger }

func newWatermillLogger(log logger.Logger) *watermillLogger {
	return &watermillLogger{log: log.With("component", "watermill")}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Error(msg, append(logArgs(fields), "error", err)...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Info(msg, logArgs(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, logArgs(fields)...)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, logArgs(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: l.log.With(logArgs(fields)...)}
}

func logArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
