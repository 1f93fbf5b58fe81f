package events

import (
	"context"
)

type contextKey int

const (
	loggerKey contextKey = iota
	taskIDKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithTaskID adds a background task ID to context.
func WithTaskID(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("task_id", id)
	ctx = context.WithValue(ctx, taskIDKey, id)
	return WithLogger(ctx, logger)
}

// GetTaskID retrieves the task ID from context.
func GetTaskID(ctx context.Context) string {
	if id, ok := ctx.Value(taskIDKey).(string); ok {
		return id
	}
	return ""
}

var defaultLogger = NewNopLogger()

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
