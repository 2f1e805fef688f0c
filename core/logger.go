package core

import (
	"github.com/sirupsen/logrus"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior (e.g., integration with zap, slog, etc.)
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger writes through a logrus entry
type DefaultLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger creates a DefaultLogger on the standard logrus logger
func NewDefaultLogger() *DefaultLogger {
	return NewLogrusLogger(logrus.NewEntry(logrus.StandardLogger()))
}

// NewLogrusLogger creates a DefaultLogger on the given entry, keeping its fields
func NewLogrusLogger(entry *logrus.Entry) *DefaultLogger {
	return &DefaultLogger{entry: entry}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.with(fields).Debug(msg)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.with(fields).Info(msg)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.with(fields).Warn(msg)
}

func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.with(fields).Error(msg)
}

func (l *DefaultLogger) with(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return l.entry.WithFields(lf)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
