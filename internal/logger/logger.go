// Package logger provides structured logging for the exporter.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides structured logging functionality.
type Logger struct {
	internal *slog.Logger
	level    *slog.LevelVar
}

// Options selects the level, output format and destination of a Logger.
type Options struct {
	Writer io.Writer
	Level  string
	Format string // "text" or "json"
}

// NewLogger creates a text logger on stderr with the specified level.
func NewLogger(level string) *Logger {
	return NewLoggerWithOptions(Options{Level: level})
}

// NewLoggerWithOptions creates a logger from opts. Unknown levels fall back to info,
// unknown formats to text, and a nil writer to stderr.
func NewLoggerWithOptions(opts Options) *Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(opts.Level))

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &Logger{
		internal: slog.New(handler),
		level:    lvl,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerWithOptions(Options{Writer: io.Discard, Level: "error"})
}

// ParseLevel maps a level name to a slog level; unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Info logs an info level message.
func (l *Logger) Info(msg string, args ...any) {
	l.internal.Info(msg, args...)
}

// Error logs an error level message.
func (l *Logger) Error(msg string, args ...any) {
	l.internal.Error(msg, args...)
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debug(msg, args...)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warn(msg, args...)
}

// With creates a child logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		internal: l.internal.With(args...),
		level:    l.level,
	}
}

// Log logs a message with the given level and attributes.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.internal.Log(ctx, level, msg, args...)
}
