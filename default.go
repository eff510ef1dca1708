package slogger

import (
	"io"
	"time"
)

// Global instance for package-level functions
var defaultLogger = NewLogger()

// Default returns the process-wide logger behind the package-level functions
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum level of the default logger
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// InitConsole adds a console sink to the default logger
func InitConsole(w io.Writer) error {
	return defaultLogger.InitConsole(w)
}

// InitFile adds a rotating file sink to the default logger
func InitFile(path string, maxSize int64, archive bool) error {
	return defaultLogger.InitFile(path, maxSize, archive)
}

// InitNetwork adds a TCP sink to the default logger
func InitNetwork(host string, port int, level Level) error {
	return defaultLogger.InitNetwork(host, port, level)
}

// ApplyConfig reconfigures the default logger
func ApplyConfig(cfg *Config) error {
	return defaultLogger.ApplyConfig(cfg)
}

// Shutdown drains and closes the default logger
func Shutdown(timeout ...time.Duration) error {
	return defaultLogger.Shutdown(timeout...)
}

// Flush forwards queued records of the default logger and syncs its sinks
func Flush(timeout time.Duration) error {
	return defaultLogger.Flush(timeout)
}

// Log logs at the given level
func Log(level Level, args ...any) {
	defaultLogger.Log(level, args...)
}

// Logf logs a formatted message at the given level
func Logf(level Level, format string, args ...any) {
	defaultLogger.Logf(level, format, args...)
}

// Trace logs a message at trace level
func Trace(args ...any) {
	defaultLogger.Trace(args...)
}

// Debug logs a message at debug level
func Debug(args ...any) {
	defaultLogger.Debug(args...)
}

// Info logs a message at info level
func Info(args ...any) {
	defaultLogger.Info(args...)
}

// Warn logs a message at warning level
func Warn(args ...any) {
	defaultLogger.Warn(args...)
}

// Error logs a message at error level
func Error(args ...any) {
	defaultLogger.Error(args...)
}

// Tracef logs a formatted message at trace level
func Tracef(format string, args ...any) {
	defaultLogger.Tracef(format, args...)
}

// Debugf logs a formatted message at debug level
func Debugf(format string, args ...any) {
	defaultLogger.Debugf(format, args...)
}

// Infof logs a formatted message at info level
func Infof(format string, args ...any) {
	defaultLogger.Infof(format, args...)
}

// Warnf logs a formatted message at warning level
func Warnf(format string, args ...any) {
	defaultLogger.Warnf(format, args...)
}

// Errorf logs a formatted message at error level
func Errorf(format string, args ...any) {
	defaultLogger.Errorf(format, args...)
}
