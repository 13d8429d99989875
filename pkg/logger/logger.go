// Package logger provides structured logging for reservoir-core built on log/slog.
// Packages log through the Default logger unless handed a *slog.Logger explicitly.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default is the process-wide logger used by the package-level helpers.
var Default *slog.Logger

func init() {
	Default = New("info", os.Stdout)
}

// ParseLevel maps a level name to a slog.Level. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON-formatted logger at the given level.
func New(level string, output io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// NewText creates a text-formatted logger (useful for development and the CLI).
func NewText(level string, output io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// SetDefault replaces the default logger for this package and for slog.
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// Debug logs a debug message through the default logger.
func Debug(msg string, args ...any) {
	Default.Debug(msg, args...)
}

// Info logs an info message through the default logger.
func Info(msg string, args ...any) {
	Default.Info(msg, args...)
}

// Warn logs a warning message through the default logger.
func Warn(msg string, args ...any) {
	Default.Warn(msg, args...)
}

// Error logs an error message through the default logger.
func Error(msg string, args ...any) {
	Default.Error(msg, args...)
}

// With returns a child of the default logger with additional attributes.
func With(args ...any) *slog.Logger {
	return Default.With(args...)
}
