// Package logging writes structured garage logs to a local JSON stream and
// to the OpenTelemetry log pipeline at the same time.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by every component.
const (
	KeySessionID = "session_id"
	KeyPlate     = "plate"
	KeyReason    = "reason"
	KeyRequestID = "request_id"
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
)

func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

func Plate(plate string) slog.Attr { return slog.String(KeyPlate, plate) }

// Reason is the machine-readable outcome label of a rejected operation.
func Reason(reason string) slog.Attr { return slog.String(KeyReason, reason) }

type requestIDKey struct{}

// ContextWithRequestID tags ctx so every record logged with it carries id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

var logger *slog.Logger

// Init installs the process logger. Telemetry must be set up first so the
// bridge picks up the real LoggerProvider.
func Init(w io.Writer, serviceName, environment string) {
	logger = New(w, serviceName, environment)
	slog.SetDefault(logger)
}

func New(w io.Writer, serviceName, environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}

	h := teeHandler{
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
		otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(global.GetLoggerProvider())),
	}
	return slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("environment", environment),
	)
}

func Logger() *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// WithContext returns the process logger annotated with the request id and
// the active span of ctx, when present.
func WithContext(ctx context.Context) *slog.Logger {
	var attrs []any
	if id, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String(KeyRequestID, id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String(KeyTraceID, sc.TraceID().String()),
			slog.String(KeySpanID, sc.SpanID().String()),
		)
	}

	if len(attrs) == 0 {
		return Logger()
	}
	return Logger().With(attrs...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).DebugContext(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// teeHandler hands each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
