// Package logger provides leveled logging with debug, info, warn and error
// levels. Output is either classic text lines or one JSON object per line.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If the tracker is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	json   bool
	mu     sync.Mutex
	out    io.Writer
	logger *log.Logger
}

var (
	// Global logger instance; nil discards everything
	defaultLogger *Logger
)

// Init initializes the default logger writing to stderr
func Init(level string, format string) {
	InitWithWriter(level, format, os.Stderr)
}

// InitWithWriter initializes the default logger writing to w
func InitWithWriter(level string, format string, w io.Writer) {
	defaultLogger = &Logger{
		level:  ParseLevel(level),
		json:   strings.ToLower(format) == "json",
		out:    w,
		logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
}

type jsonLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

func (l *Logger) output(level Level, format string, args ...interface{}) {
	if l == nil || l.level > level {
		return
	}
	msg := fmt.Sprintf(format, args...)

	if !l.json {
		_ = l.logger.Output(3, "["+level.String()+"] "+msg)
		return
	}

	line, err := json.Marshal(jsonLine{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   strings.ToLower(level.String()),
		Message: msg,
	})
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	defaultLogger.output(DebugLevel, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	defaultLogger.output(InfoLevel, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	defaultLogger.output(WarnLevel, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	defaultLogger.output(ErrorLevel, format, args...)
}

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		log.Fatalf("[FATAL] "+format, args...)
	}
	defaultLogger.output(ErrorLevel, "[FATAL] "+format, args...)
	os.Exit(1)
}
