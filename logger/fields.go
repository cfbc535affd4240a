package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across rowdb.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldSymbol    = "symbol"

	// Schema
	FieldTable  = "table"
	FieldColumn = "column"
	FieldMode   = "mode"

	// Operations
	FieldOperation = "operation"
	FieldSQL       = "sql"
	FieldConflict  = "conflict"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount   = "count"
	FieldSize    = "size"
	FieldDeleted = "deleted"

	// Files and paths
	FieldPath      = "path"
	FieldFolder    = "folder"
	FieldReference = "ref"
)

type contextKey string

const (
	componentKey contextKey = "logger_component"
	operationKey contextKey = "logger_operation"
)

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithOperation adds an operation name to the context for logging
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}
	if operation, ok := ctx.Value(operationKey).(string); ok && operation != "" {
		fields = append(fields, FieldOperation, operation)
	}

	return fields
}

// FromContext returns base with fields extracted from context attached.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	store, err := filestore.New(dir, filestore.JSONCodec{}, logger.ComponentLogger("files"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
