package logger

import (
	"go.uber.org/zap"

	"github.com/teranos/rowdb/sym"
)

// Symbol-aware logging helpers.
// These attach the subsystem glyph as a structured field, not in the message.
//
// Usage:
//
//	log := logger.WithSymbol(base, sym.Files)
//	log.Infow("Reconciled folder", "deleted", n)

// WithSymbol returns l with the given subsystem symbol attached.
func WithSymbol(l *zap.SugaredLogger, symbol string) *zap.SugaredLogger {
	return OrNop(l).With(FieldSymbol, symbol)
}

// DBInfow logs an info message on the global logger with the DB symbol (⊔)
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// FilesInfow logs an info message on the global logger with the Files symbol (▤)
func FilesInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Files}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}
