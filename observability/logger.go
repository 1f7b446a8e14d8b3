// Package observability provides the logging abstraction used across
// the keshavai library, with adapters for the standard log package,
// logrus, and zap.
package observability

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorLogField is the key used for error fields in logs.
const ErrorLogField string = "error"

// Logger defines the common logging methods.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithErr(err error) Logger
}

// DefaultLogger is a basic implementation backed by the standard log
// package, writing to stdout.
type DefaultLogger struct {
	logger *log.Logger
	fields map[string]interface{}
	err    error
}

// NewDefaultLogger creates a DefaultLogger that logs to standard output.
func NewDefaultLogger() Logger {
	return &DefaultLogger{
		logger: log.New(os.Stdout, "", log.LstdFlags),
		fields: make(map[string]interface{}),
	}
}

func (l *DefaultLogger) Debug(args ...interface{}) { l.print("DEBUG", args...) }
func (l *DefaultLogger) Info(args ...interface{})  { l.print("INFO", args...) }
func (l *DefaultLogger) Warn(args ...interface{})  { l.print("WARN", args...) }
func (l *DefaultLogger) Error(args ...interface{}) { l.print("ERROR", args...) }

// WithFields returns a copy of the logger with the fields attached.
func (l *DefaultLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &DefaultLogger{logger: l.logger, fields: merged, err: l.err}
}

// WithContext is a no-op for DefaultLogger.
func (l *DefaultLogger) WithContext(ctx context.Context) Logger { return l }

// WithErr returns a copy of the logger with the error attached.
func (l *DefaultLogger) WithErr(err error) Logger {
	return &DefaultLogger{logger: l.logger, fields: l.fields, err: err}
}

func (l *DefaultLogger) print(level string, args ...interface{}) {
	var parts []string
	for k, v := range l.fields {
		parts = append(parts, fmt.Sprintf("%v=%v", k, v))
	}
	if l.err != nil {
		parts = append(parts, fmt.Sprintf("%s=%v", ErrorLogField, l.err))
	}
	prefix := ""
	if len(parts) > 0 {
		prefix = "[" + strings.Join(parts, " ") + "] "
	}
	l.logger.Printf("%s[%s] %s", prefix, level, fmt.Sprint(args...))
}

// NullLogger is a logger that discards everything.
type NullLogger struct{}

// NewNullLogger creates a new NullLogger.
func NewNullLogger() Logger { return &NullLogger{} }

func (l *NullLogger) Debug(args ...interface{}) {}
func (l *NullLogger) Info(args ...interface{})  {}
func (l *NullLogger) Warn(args ...interface{})  {}
func (l *NullLogger) Error(args ...interface{}) {}

// WithFields is a no-op for NullLogger.
func (l *NullLogger) WithFields(fields map[string]interface{}) Logger { return l }

// WithContext is a no-op for NullLogger.
func (l *NullLogger) WithContext(ctx context.Context) Logger { return l }

// WithErr is a no-op for NullLogger.
func (l *NullLogger) WithErr(err error) Logger { return l }

// LogrusLogger implements Logger using logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a LogrusLogger from the provided logrus
// logger, falling back to the standard one when nil.
func NewLogrusLogger(logger *logrus.Logger) Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

// WithFields adds fields and returns a new LogrusLogger.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext attaches the context and returns a new LogrusLogger.
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{entry: l.entry.WithContext(ctx)}
}

// WithErr attaches the error and returns a new LogrusLogger.
func (l *LogrusLogger) WithErr(err error) Logger {
	return &LogrusLogger{entry: l.entry.WithError(err)}
}

// ZapLogger implements Logger using uber-go/zap.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapLogger creates a ZapLogger from the provided zap logger,
// falling back to the production configuration when nil.
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &ZapLogger{logger: logger, sugar: logger.Sugar()}
}

func (l *ZapLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *ZapLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *ZapLogger) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l *ZapLogger) Error(args ...interface{}) { l.sugar.Error(args...) }

// WithFields adds fields and returns a new ZapLogger.
func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	zapFields := make([]zapcore.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	with := l.logger.With(zapFields...)
	return &ZapLogger{logger: with, sugar: with.Sugar()}
}

// WithContext is a no-op for ZapLogger.
func (l *ZapLogger) WithContext(ctx context.Context) Logger { return l }

// WithErr attaches the error and returns a new ZapLogger.
func (l *ZapLogger) WithErr(err error) Logger {
	with := l.logger.With(zap.Error(err))
	return &ZapLogger{logger: with, sugar: with.Sugar()}
}
