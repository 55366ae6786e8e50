// Package logger provides the slog-based structured logger shared by every
// binary. Records logged with a context carry the OTel trace and span IDs and
// the chi request ID found in it.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/bookcatalog/pkg/config"
)

// Logger is the logging interface passed through the application.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
	// ToSlog exposes the underlying *slog.Logger, e.g. for slog.SetDefault.
	ToSlog() *slog.Logger
}

// New returns a JSON logger on stdout at cfg.LogLevel, tagged with the
// service identity. Debug level also records the source location.
func New(cfg *config.Config) Logger {
	return build(os.Stdout, cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.Environment,
	)
}

// NewWithWriter returns a JSON logger writing to w. Unknown levels mean info.
func NewWithWriter(w io.Writer, level string) Logger {
	return build(w, level)
}

// Discard drops everything.
func Discard() Logger {
	return &slogLogger{Logger: slog.New(slog.DiscardHandler)}
}

func build(w io.Writer, level string) *slogLogger {
	lvl := parseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return &slogLogger{Logger: slog.New(contextHandler{h})}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type slogLogger struct{ *slog.Logger }

func (l *slogLogger) With(args ...any) Logger { return &slogLogger{Logger: l.Logger.With(args...)} }
func (l *slogLogger) ToSlog() *slog.Logger    { return l.Logger }

// contextHandler adds trace_id, span_id and request_id from the record's
// context.
type contextHandler struct{ slog.Handler }

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if id := middleware.GetReqID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
