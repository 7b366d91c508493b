package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/lmittmann/tint"
)

var (
	disabled atomic.Bool
	logger   = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
)

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

// SetLevel replaces the handler with one filtering below the given level
func SetLevel(level slog.Level) {
	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}

// Info logs an info message
func Info(v ...any) {
	if !disabled.Load() {
		logger.Info(fmt.Sprint(v...))
	}
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	if !disabled.Load() {
		logger.Info(fmt.Sprintf(format, v...))
	}
}

// Error logs an error message
func Error(v ...any) {
	if !disabled.Load() {
		logger.Error(fmt.Sprint(v...))
	}
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	if !disabled.Load() {
		logger.Error(fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning message
func Warn(v ...any) {
	if !disabled.Load() {
		logger.Warn(fmt.Sprint(v...))
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	if !disabled.Load() {
		logger.Warn(fmt.Sprintf(format, v...))
	}
}

// Debug logs a debug message
func Debug(v ...any) {
	if !disabled.Load() {
		logger.Debug(fmt.Sprint(v...))
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	if !disabled.Load() {
		logger.Debug(fmt.Sprintf(format, v...))
	}
}

// Logger is a component-scoped logger that can be embedded in structs
type Logger struct {
	component string
}

// For returns a Logger tagged with a component name
func For(component string) Logger {
	return Logger{component: component}
}

// Info logs an info message
func (l Logger) Info(v ...any) {
	if !disabled.Load() {
		logger.Info(fmt.Sprint(v...), "component", l.component)
	}
}

// Infof logs a formatted info message
func (l Logger) Infof(format string, v ...any) {
	if !disabled.Load() {
		logger.Info(fmt.Sprintf(format, v...), "component", l.component)
	}
}

// Warnf logs a formatted warning message
func (l Logger) Warnf(format string, v ...any) {
	if !disabled.Load() {
		logger.Warn(fmt.Sprintf(format, v...), "component", l.component)
	}
}

// Error logs an error message
func (l Logger) Error(v ...any) {
	if !disabled.Load() {
		logger.Error(fmt.Sprint(v...), "component", l.component)
	}
}

// Errorf logs a formatted error message
func (l Logger) Errorf(format string, v ...any) {
	if !disabled.Load() {
		logger.Error(fmt.Sprintf(format, v...), "component", l.component)
	}
}
