package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// -----------------------------------------------------------------------------

const (
	levelDebug = iota
	levelInfo
	levelWarning
	levelError
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging on top of the standard library.
type Logger struct {
	name     string
	logger   *log.Logger
	minLevel int
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. Level is one of DEBUG, INFO,
// WARNING, ERROR; anything else falls back to INFO.
func NewLogger(level string, name string) *Logger {
	return &Logger{
		name:     name,
		logger:   log.New(os.Stdout, "", log.LstdFlags),
		minLevel: parseLevel(level),
	}
}

// -----------------------------------------------------------------------------

func parseLevel(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return levelDebug
	case "WARNING":
		return levelWarning
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.minLevel > levelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] DEBUG: %s", l.name, msg)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.minLevel > levelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] INFO: %s", l.name, msg)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	if l.minLevel > levelWarning {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] WARNING: %s", l.name, msg)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] ERROR: %s", l.name, msg)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] CRITICAL: %s", l.name, msg)
	os.Exit(1)
}
