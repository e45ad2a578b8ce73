// Package logging provides config-driven categorized file logging for
// foodbridge. The interactive UI owns the terminal, so runtime logs go to
// files under <state dir>/logs/, one file per category per day. Logging is
// controlled by debug_mode in the config: when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config loading, session hydration
	CategorySession Category = "session" // Login/register/logout, persistence
	CategoryAPI     Category = "api"     // Remote service calls
	CategorySync    Category = "sync"    // Collection fetches, optimistic mutations
	CategoryUI      Category = "ui"      // Page routing, user intents
)

// Options mirrors the logging section of the app config. Passing it in
// explicitly keeps this package free of a config dependency.
type Options struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Categories map[string]bool
	JSONFormat bool
}

// entry is the structured JSON log line format.
type entry struct {
	Timestamp int64  `json:"ts"` // Unix milliseconds
	Category  string `json:"cat"`
	Level     string `json:"lvl"`
	Message   string `json:"msg"`
	RequestID string `json:"req,omitempty"`
}

// Logger writes to one category's file. A Logger with a nil inner logger
// is a no-op; callers never need to check.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int
)

// Initialize sets the logging directory and options. Call once at startup
// with the state directory (e.g. ~/.foodbridge). A no-op when debug mode
// is off.
func Initialize(stateDir string, o Options) error {
	if stateDir == "" {
		return fmt.Errorf("state dir required")
	}

	optsMu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}

	logsDir = filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("logging initialized, dir=%s level=%s", logsDir, o.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

func categoryEnabled(c Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Returns a no-op
// logger when the category is disabled or the file cannot be opened.
func Get(c Category) *Logger {
	if !categoryEnabled(c) || logsDir == "" {
		return &Logger{category: c}
	}

	loggersMu.RLock()
	if l, ok := loggers[c]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, c))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open log file %s: %v\n", logPath, err)
		return &Logger{category: c}
	}

	l := &Logger{
		category: c,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[c] = l
	return l
}

func (l *Logger) write(level int, levelName, requestID, format string, args ...any) {
	if l.logger == nil || (level != LevelError && logLevel > level) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	optsMu.RLock()
	jsonFormat := opts.JSONFormat
	optsMu.RUnlock()

	if jsonFormat {
		e := entry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     levelName,
			Message:   msg,
			RequestID: requestID,
		}
		if data, err := json.Marshal(e); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	if requestID != "" {
		l.logger.Printf("[%s] [req:%s] %s", levelName, requestID, msg)
		return
	}
	l.logger.Printf("[%s] %s", levelName, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.write(LevelDebug, "DEBUG", "", format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, "INFO", "", format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	l.write(LevelWarn, "WARN", "", format, args...)
}

// Error logs an error. Errors bypass the level filter.
func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, "ERROR", "", format, args...)
}

// RequestLogger carries a request correlation ID for the api category.
type RequestLogger struct {
	logger    *Logger
	requestID string
}

// WithRequestID returns a request-scoped logger.
func WithRequestID(c Category, requestID string) *RequestLogger {
	return &RequestLogger{logger: Get(c), requestID: requestID}
}

func (r *RequestLogger) Debug(format string, args ...any) {
	r.logger.write(LevelDebug, "DEBUG", r.requestID, format, args...)
}

func (r *RequestLogger) Info(format string, args ...any) {
	r.logger.write(LevelInfo, "INFO", r.requestID, format, args...)
}

func (r *RequestLogger) Error(format string, args ...any) {
	r.logger.write(LevelError, "ERROR", r.requestID, format, args...)
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions for the common categories.

// Boot logs to the boot category.
func Boot(format string, args ...any) { Get(CategoryBoot).Info(format, args...) }

// BootError logs an error to the boot category.
func BootError(format string, args ...any) { Get(CategoryBoot).Error(format, args...) }

// Session logs to the session category.
func Session(format string, args ...any) { Get(CategorySession).Info(format, args...) }

// SessionError logs an error to the session category.
func SessionError(format string, args ...any) { Get(CategorySession).Error(format, args...) }

// API logs to the api category.
func API(format string, args ...any) { Get(CategoryAPI).Info(format, args...) }

// APIError logs an error to the api category.
func APIError(format string, args ...any) { Get(CategoryAPI).Error(format, args...) }

// Sync logs to the sync category.
func Sync(format string, args ...any) { Get(CategorySync).Info(format, args...) }

// SyncDebug logs debug to the sync category.
func SyncDebug(format string, args ...any) { Get(CategorySync).Debug(format, args...) }

// SyncError logs an error to the sync category.
func SyncError(format string, args ...any) { Get(CategorySync).Error(format, args...) }

// UI logs to the ui category.
func UI(format string, args ...any) { Get(CategoryUI).Info(format, args...) }

// Timer measures an operation's duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(c Category, operation string) *Timer {
	return &Timer{category: c, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
