// Package logging provides structured logging for Pulse built on log/slog.
// Components attach themselves to a context via WithComponent so every
// record carries its origin without threading a logger through call sites.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type componentKey struct{}

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// WithComponent returns a context that attributes log records to the named
// component (e.g. "lifecycle", "heartbeat").
func WithComponent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, componentKey{}, name)
}

// Init configures the default logger to write to w at the given level.
// Unknown level strings fall back to info.
func Init(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// InitFile opens the log file under dataDir and routes records there.
// Returns a cleanup function closing the file. Any failure leaves logging
// discarded; a broken log sink must never break the plugin.
func InitFile(dataDir, level string) func() {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return func() {}
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "pulse.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return func() {}
	}
	Init(f, level)
	return func() { _ = f.Close() }
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level with component attribution from ctx.
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at info level with component attribution from ctx.
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at warn level with component attribution from ctx.
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at error level with component attribution from ctx.
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelError, msg, attrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if component, ok := ctx.Value(componentKey{}).(string); ok {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	l.LogAttrs(ctx, level, msg, attrs...)
}
