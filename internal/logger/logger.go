// Package logger is the process-wide structured logger for mapleads.
// Library packages log scrape progress through it with key/value pairs
// ("index", 3, "url", u); the CLI configures it once from --debug,
// --quiet and --log-json.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultLogger = slog.New(newHandler(os.Stderr, slog.LevelInfo, false))
	mu            sync.RWMutex
)

// Options configures the logger.
type Options struct {
	Debug  bool         // scroll counts, per-listing progress, chromedp events
	Quiet  bool         // errors only; wins over Debug
	JSON   bool         // one JSON object per line
	Output io.Writer    // default stderr
	Logger *slog.Logger // used as-is when set
}

func (o Options) level() slog.Level {
	switch {
	case o.Quiet:
		return slog.LevelError
	case o.Debug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Init replaces the process logger.
func Init(opts Options) {
	l := opts.Logger
	if l == nil {
		w := opts.Output
		if w == nil {
			w = os.Stderr
		}
		l = slog.New(newHandler(w, opts.level(), opts.JSON))
	}
	SetLogger(l)
}

// SetLogger routes all mapleads logging to l, e.g. when embedding the
// scraper in another program.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Enabled reports whether messages at level would be emitted.
func Enabled(level slog.Level) bool {
	return current().Enabled(context.Background(), level)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	current().InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	current().WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current().ErrorContext(ctx, msg, args...)
}

// Logf returns a printf-style function that forwards to Debug under the given
// source name. Used for libraries that only accept a Logf hook (chromedp).
func Logf(source string) func(format string, args ...any) {
	return func(format string, args ...any) {
		if !Enabled(slog.LevelDebug) {
			return
		}
		Debug(source, "msg", fmt.Sprintf(format, args...))
	}
}
