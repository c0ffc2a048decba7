package bunchfile

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with bunchfile-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOpen logs opening or creating a store.
func (l *Logger) LogOpen(ctx context.Context, codec string, created bool, blocks, records int) {
	if created {
		l.InfoContext(ctx, "store created",
			"codec", codec,
		)
		return
	}
	l.InfoContext(ctx, "store opened",
		"codec", codec,
		"blocks", blocks,
		"records", records,
	)
}

// LogCorrupt logs a corrupt block region rejected at open time.
func (l *Logger) LogCorrupt(ctx context.Context, err error) {
	l.ErrorContext(ctx, "corrupt store",
		"error", err,
	)
}

// LogFlush logs a block written to disk.
func (l *Logger) LogFlush(ctx context.Context, block, records, rawBytes, storedBytes int) {
	l.DebugContext(ctx, "block flushed",
		"block", block,
		"records", records,
		"raw_bytes", rawBytes,
		"stored_bytes", storedBytes,
		"stored_raw", storedBytes == rawBytes,
	)
}

// LogReindex logs a reindex operation.
func (l *Logger) LogReindex(ctx context.Context, records int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reindex failed",
			"records", records,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "reindex completed",
			"records", records,
			"duration", duration,
		)
	}
}

// LogClose logs closing a store.
func (l *Logger) LogClose(ctx context.Context, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed",
			"records", records,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "store closed",
			"records", records,
		)
	}
}
