package log

import (
	"context"
)

// StructuredLogger wraps a component Logger with helpers for the
// recurring log shapes the handlers and workers emit.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a structured logger on top of logger.
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogEntryCreated records a successfully created entry.
func (sl *StructuredLogger) LogEntryCreated(ctx context.Context, userID, id, title, amount, kind string) {
	fields := NewFields().
		WithEntry(id, title, amount, kind).
		WithUser(userID).
		WithOperation(OpCreate).
		WithComponent(ComponentEntry)

	sl.logger.InfoContext(ctx, "Entry created successfully", fields.ToSlice()...)
}

// LogError records a failure with its component and operation context.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
