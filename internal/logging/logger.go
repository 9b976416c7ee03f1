package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vendlabs/vmhistory/internal/middleware"
)

type eventKindKey struct{}

// Logger is a slog.Logger that pulls request-scoped fields out of the
// context: the request ID set by middleware.RequestID and the event kind set
// by WithEventKind.
type Logger struct {
	*slog.Logger
}

// New logs to stdout. format is "json" (default) or "text"/"console".
func New(level slog.Level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination. Source locations are
// only attached at debug level.
func NewWithWriter(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Default wraps slog.Default.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// Discard drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithEventKind tags ctx so every line logged with it names the event kind
// being ingested.
func WithEventKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, eventKindKey{}, kind)
}

// WithContext returns a logger carrying the request ID and event kind found
// in ctx.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	var attrs []any
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		attrs = append(attrs, slog.String(FieldRequestID, reqID))
	}
	if kind, ok := ctx.Value(eventKindKey{}).(string); ok && kind != "" {
		attrs = append(attrs, EventKind(kind))
	}
	if len(attrs) == 0 {
		return l.Logger
	}
	return l.Logger.With(attrs...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).InfoContext(ctx, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).WarnContext(ctx, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).ErrorContext(ctx, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).DebugContext(ctx, msg, args...)
}

// With returns a logger with args attached to every line.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel maps a config value to a slog level, case-insensitively.
// Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetDefault installs l as the slog and log package default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
