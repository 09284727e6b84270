// Package logging provides structured logging to console and file.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

type LoggingService struct {
	Logger *slog.Logger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance
func InitLogger(logDir, level string) {
	DefaultLoggingService = &LoggingService{
		Logger: SetupLogger(logDir, level),
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// SetupLogger configures slog to log text to the console and JSON to a
// file under logDir. If the directory or file cannot be created it
// falls back to console-only logging.
func SetupLogger(logDir, level string) *slog.Logger {
	logLevel := parseLevel(level)
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})

	if err := os.MkdirAll(logDir, 0750); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "error", err)
		return logger
	}

	logPath := filepath.Join(logDir, "epidata.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to open log file", "path", logPath, "error", err)
		return logger
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: logLevel})
	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
}

func parseLevel(level string) slog.Level {
	switch level {
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

// Package-level functions for direct access

func Info(msg string, args ...any) {
	active(slog.LevelInfo).Info(msg, args...)
}

func Warn(msg string, args ...any) {
	active(slog.LevelWarn).Warn(msg, args...)
}

func Error(msg string, args ...any) {
	active(slog.LevelError).Error(msg, args...)
}

func Debug(msg string, args ...any) {
	active(slog.LevelDebug).Debug(msg, args...)
}

// active returns the configured logger, or a console fallback when the
// package has not been initialized.
func active(level slog.Level) *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// multiHandler fans one record out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
