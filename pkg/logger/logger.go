// Package logger provides the process-wide log used by the hierarchy engine,
// the device sources and the CLI.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile      *os.File
	writer       io.Writer = io.Discard
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string, verbose bool) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	setOutput(f, verbose)
	return nil
}

// SetOutput directs logging to w, mainly for tests and stderr logging.
func SetOutput(w io.Writer, verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	setOutput(w, verbose)
}

func setOutput(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	writer = w
	globalLogger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	writer = io.Discard
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	logf(slog.LevelInfo, format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	logf(slog.LevelDebug, format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	logf(slog.LevelError, format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	logf(slog.LevelWarn, format, v...)
}

// With returns a structured logger carrying the given attributes, for callers
// that log many lines about the same device or snapshot.
func With(args ...any) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With(args...)
}

func logf(level slog.Level, format string, v ...interface{}) {
	mu.Lock()
	l := globalLogger
	mu.Unlock()

	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, v...))
}

// GetWriter returns the underlying writer for use by device clients.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return writer
}
