package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// AppLogger is the process-wide structured logger. It never writes to stdout:
// stdout carries the JSON-RPC stream when the server runs over stdio.
type AppLogger struct {
	logger *log.Logger
	debug  bool
}

// Options configures a logger. Zero values give a warn-level text logger on stderr.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, logfmt, json
	Output io.Writer
	Debug  bool
}

var (
	defaultLogger *AppLogger
	mu            sync.Mutex
)

// GetDefault returns the default logger instance (singleton-like for convenience)
func GetDefault() *AppLogger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewAppLogger(Options{Debug: os.Getenv("DEBUG") != ""})
	}
	return defaultLogger
}

// SetDefault replaces the package-level logger. Called once from main after
// configuration has been loaded.
func SetDefault(l *AppLogger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Package-level convenience functions for quick logging
func Info(msg string, keyvals ...interface{}) {
	GetDefault().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	GetDefault().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	GetDefault().Error(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	GetDefault().Debug(msg, keyvals...)
}

func LogPerformance(operation string, start time.Time) {
	GetDefault().LogPerformance(operation, start)
}

func NewAppLogger(opts Options) *AppLogger {
	out := opts.Output
	timeFormat := time.RFC3339
	logPath := ""

	if opts.Debug && out == nil {
		// Development: append to a log file in the working directory,
		// falling back to stderr when it cannot be created.
		if f, path, err := openDebugLog(); err == nil {
			out = f
			logPath = path
			timeFormat = time.Kitchen
		}
	}
	if out == nil {
		out = os.Stderr
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportCaller:    opts.Debug,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Prefix:          "iacrules",
		Formatter:       parseFormatter(opts.Format),
	})

	level := log.WarnLevel
	if opts.Level != "" {
		if parsed, err := log.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}
	if opts.Debug {
		level = log.DebugLevel
	}
	logger.SetLevel(level)

	if logPath != "" {
		logger.Info("Debug logging enabled", "log_file", logPath)
	}

	return &AppLogger{
		logger: logger,
		debug:  opts.Debug || level == log.DebugLevel,
	}
}

func openDebugLog() (*os.File, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	logPath := filepath.Join(cwd, "iacrules.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create debug log file: %w", err)
	}
	return f, logPath, nil
}

func parseFormatter(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", "text", "json", "logfmt":
		return true
	}
	return false
}

// Log application events
func (al *AppLogger) Info(msg string, keyvals ...interface{}) {
	al.logger.Info(msg, keyvals...)
}

func (al *AppLogger) Warn(msg string, keyvals ...interface{}) {
	al.logger.Warn(msg, keyvals...)
}

func (al *AppLogger) Error(msg string, keyvals ...interface{}) {
	al.logger.Error(msg, keyvals...)
}

func (al *AppLogger) Debug(msg string, keyvals ...interface{}) {
	if al.debug {
		al.logger.Debug(msg, keyvals...)
	}
}

// With returns a child logger carrying the given key/value pairs.
func (al *AppLogger) With(keyvals ...interface{}) *AppLogger {
	return &AppLogger{
		logger: al.logger.With(keyvals...),
		debug:  al.debug,
	}
}

// Log performance metrics
func (al *AppLogger) LogPerformance(operation string, start time.Time) {
	if al.debug {
		duration := time.Since(start)
		al.logger.Debug("Performance",
			"operation", operation,
			"duration", duration,
		)
	}
}

// Testing Helper - NewTestLogger creates a logger that writes to a buffer for testing
func NewTestLogger() (*AppLogger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false, // Easier to test without timestamps
		ReportCaller:    false,
		Prefix:          "Test",
	})
	logger.SetLevel(log.DebugLevel)

	return &AppLogger{
		logger: logger,
		debug:  true,
	}, &buf
}
