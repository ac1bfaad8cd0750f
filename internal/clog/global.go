package clog

import "sync"

var (
	globalMu sync.RWMutex
	global   = NewLogger()
)

// Default returns the package-level logger.
func Default() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Debug logs a debug message to the package-level logger.
func Debug(format string, args ...any) {
	Default().Debug(format, args...)
}

// Info logs an informational message to the package-level logger.
func Info(format string, args ...any) {
	Default().Info(format, args...)
}

// Warn logs a warning message to the package-level logger.
func Warn(format string, args ...any) {
	Default().Warn(format, args...)
}

// Error logs an error message to the package-level logger.
func Error(format string, args ...any) {
	Default().Error(format, args...)
}
