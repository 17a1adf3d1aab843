package mcckpt

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with checkpoint-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithReplica tags every record with the replica output directory.
func (l *Logger) WithReplica(dir string) *Logger {
	if dir == "" {
		return l
	}
	return &Logger{
		Logger: l.Logger.With("replica", dir),
	}
}

// LogCheckpoint logs a checkpoint write.
func (l *Logger) LogCheckpoint(ctx context.Context, filename string, step uint64, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"filename", filename,
			"step", step,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "checkpoint saved",
		"filename", filename,
		"step", step,
		"bytes", size,
	)
}

// LogLoad logs a checkpoint restore.
func (l *Logger) LogLoad(ctx context.Context, filename string, step uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint load failed",
			"filename", filename,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "checkpoint loaded",
		"filename", filename,
		"resume_step", step+1,
	)
}

// LogPrune logs the removal of an old checkpoint.
func (l *Logger) LogPrune(ctx context.Context, filename string, err error) {
	if err != nil {
		l.WarnContext(ctx, "checkpoint prune failed",
			"filename", filename,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "checkpoint pruned",
		"filename", filename,
	)
}
