// Package logger is the leveled logging interface threaded through the
// remote runners, test steps and core processing. Tests swap in a
// BufferLogger to assert on what was logged.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// DebugEnv turns on debug output for the default logger when non-empty.
const DebugEnv = "FTEST_DEBUG"

// Logger takes printf-style messages at four levels.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Level orders messages by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// EnvLevel is LevelDebug when FTEST_DEBUG is set and base otherwise.
func EnvLevel(base Level) Level {
	if os.Getenv(DebugEnv) != "" {
		return LevelDebug
	}
	return base
}

type writerLogger struct {
	out    *log.Logger
	prefix string
	min    Level
}

// New returns a logger writing timestamped lines to w. Messages below min
// are dropped. Warnings and errors carry their level after the prefix.
func New(w io.Writer, prefix string, min Level) Logger {
	if prefix != "" {
		prefix += " "
	}
	return &writerLogger{out: log.New(w, "", log.LstdFlags), prefix: prefix, min: min}
}

func (l *writerLogger) emit(level Level, format string, args []interface{}) {
	if level < l.min {
		return
	}
	tag := ""
	if level >= LevelWarn {
		tag = strings.ToUpper(level.String()) + ": "
	}
	l.out.Print(l.prefix + tag + fmt.Sprintf(format, args...))
}

func (l *writerLogger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args) }
func (l *writerLogger) Info(format string, args ...interface{})  { l.emit(LevelInfo, format, args) }
func (l *writerLogger) Warn(format string, args ...interface{})  { l.emit(LevelWarn, format, args) }
func (l *writerLogger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args) }

type noopLogger struct{}

// Noop discards everything.
func Noop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Entry is one message captured by a BufferLogger.
type Entry struct {
	Level   Level
	Message string
}

// BufferLogger records every message in memory. It is safe to share
// between the goroutines of a parallel remote run.
type BufferLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (b *BufferLogger) record(level Level, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	b.mu.Lock()
	b.entries = append(b.entries, Entry{Level: level, Message: msg})
	b.mu.Unlock()
}

func (b *BufferLogger) Debug(format string, args ...interface{}) { b.record(LevelDebug, format, args) }
func (b *BufferLogger) Info(format string, args ...interface{})  { b.record(LevelInfo, format, args) }
func (b *BufferLogger) Warn(format string, args ...interface{})  { b.record(LevelWarn, format, args) }
func (b *BufferLogger) Error(format string, args ...interface{}) { b.record(LevelError, format, args) }

// Entries returns a copy of what has been logged so far.
func (b *BufferLogger) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// HasLevel reports whether anything was logged at the named level
// ("debug", "info", "warn" or "error").
func (b *BufferLogger) HasLevel(name string) bool {
	for _, e := range b.Entries() {
		if e.Level.String() == name {
			return true
		}
	}
	return false
}

// Contains reports whether any message contains substr.
func (b *BufferLogger) Contains(substr string) bool {
	for _, e := range b.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Clear drops the captured messages.
func (b *BufferLogger) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stderr, "[ftest]", EnvLevel(LevelInfo))
)

// Default is the process-wide logger the CLI configures from --verbose
// and --quiet.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}
