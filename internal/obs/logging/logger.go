// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging writes structured JSON logs for CLI runs under the
// project's observability directory so agent sessions can be replayed and
// debugged after the fact.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger wraps slog with persistent attributes so feature and task context
// propagates to every entry. Safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	file   *os.File
	mu     sync.Mutex
	attrs  []slog.Attr
}

// New creates a Logger appending JSON lines to {obsDir}/logs/sam.log,
// rotating the file once it grows past maxSizeMB and keeping maxFiles
// rotated files. An empty obsDir writes to stderr instead, which is what
// tests and one-off invocations want.
func New(obsDir, level string, maxSizeMB, maxFiles int) (*Logger, error) {
	var writer io.Writer
	var file *os.File

	if obsDir != "" {
		logDir := filepath.Join(obsDir, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		logPath := filepath.Join(logDir, "sam.log")
		if err := rotate(logPath, maxSizeMB, maxFiles); err != nil {
			return nil, err
		}
		var err error
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		writer = file
	} else {
		writer = os.Stderr
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{
		logger: slog.New(handler),
		file:   file,
	}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// rotate shifts sam.log to sam.log.1, sam.log.1 to sam.log.2 and so on
// when the active file exceeds maxSizeMB. The oldest file falls off once
// maxFiles rotated files exist.
func rotate(logPath string, maxSizeMB, maxFiles int) error {
	if maxSizeMB <= 0 {
		return nil
	}
	info, err := os.Stat(logPath)
	if err != nil || info.Size() < int64(maxSizeMB)*1024*1024 {
		return nil
	}

	if maxFiles < 1 {
		maxFiles = 1
	}
	_ = os.Remove(fmt.Sprintf("%s.%d", logPath, maxFiles))
	for i := maxFiles - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", logPath, i), fmt.Sprintf("%s.%d", logPath, i+1))
	}
	if err := os.Rename(logPath, logPath+".1"); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithFeature returns a child logger tagging entries with the feature ID.
func (l *Logger) WithFeature(featureID string) *Logger {
	return l.withAttr(slog.String("feature_id", featureID))
}

// WithTask returns a child logger tagging entries with the task ID.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.withAttr(slog.String("task_id", taskID))
}

// WithCommand returns a child logger tagging entries with the CLI command.
func (l *Logger) WithCommand(command string) *Logger {
	return l.withAttr(slog.String("command", command))
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	attrs := make([]slog.Attr, len(l.attrs)+1)
	copy(attrs, l.attrs)
	attrs[len(l.attrs)] = attr
	return &Logger{logger: l.logger, file: l.file, attrs: attrs}
}

// Debug logs at DEBUG level with alternating key-value arguments.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at INFO level with alternating key-value arguments.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at WARN level with alternating key-value arguments.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at ERROR level with alternating key-value arguments.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	all := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		all = append(all, attr.Key, attr.Value.Any())
	}
	all = append(all, args...)
	l.logger.Log(context.Background(), level, msg, all...)
}

// Slog exposes the underlying slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	args := make([]any, 0, len(l.attrs)*2)
	for _, attr := range l.attrs {
		args = append(args, attr.Key, attr.Value.Any())
	}
	return l.logger.With(args...)
}

// Close syncs and closes the log file. A stderr logger is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	l.file = nil
	return nil
}
