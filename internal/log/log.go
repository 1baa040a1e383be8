// ABOUTME: Level-gated diagnostic logger keyed on slog levels
// ABOUTME: Writes "[LEVEL] message" lines; the default logger writes to stderr to stay out of the frame

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger writes leveled diagnostic lines to an io.Writer.
// It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level atomic.Int64
}

// New returns a Logger writing to w at LevelInfo.
func New(w io.Writer) *Logger {
	l := &Logger{out: w}
	l.level.Store(int64(LevelInfo))
	return l
}

var std = New(os.Stderr)

// Default returns the process-wide logger writing to stderr.
func Default() *Logger { return std }

// Writer returns the destination of the logger.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out
}

// SetLevel sets the minimum level the logger emits.
func (l *Logger) SetLevel(lv slog.Level) {
	l.level.Store(int64(lv))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return slog.Level(l.level.Load())
}

// Enabled reports whether messages at lv are emitted.
func (l *Logger) Enabled(lv slog.Level) bool {
	return lv >= l.Level()
}

// Debug logs a debug message if the level allows it.
func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Info logs an info message if the level allows it.
func (l *Logger) Info(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warn logs a warning message if the level allows it.
func (l *Logger) Warn(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Error logs an error message (always emitted).
func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, format, args...)
}

func (l *Logger) logf(lv slog.Level, format string, args ...any) {
	if !l.Enabled(lv) {
		return
	}
	l.write(lv, format, args...)
}

// write emits one line. Lines end in CRLF because the terminal may be in
// raw mode, where a bare LF does not return the carriage.
func (l *Logger) write(lv slog.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s\r\n", strings.ToUpper(lv.String()), msg)
}

// SetLevel sets the level of the default logger.
func SetLevel(lv slog.Level) { std.SetLevel(lv) }

// GetLevel returns the level of the default logger.
func GetLevel() slog.Level { return std.Level() }

// Debug logs to the default logger.
func Debug(format string, args ...any) { std.Debug(format, args...) }

// Info logs to the default logger.
func Info(format string, args ...any) { std.Info(format, args...) }

// Warn logs to the default logger.
func Warn(format string, args ...any) { std.Warn(format, args...) }

// Error logs to the default logger.
func Error(format string, args ...any) { std.Error(format, args...) }
