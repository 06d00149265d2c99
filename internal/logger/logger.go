package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

// New creates a JSON logger writing to stdout.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

func NewWithWriter(service string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return NewWithWriter("test", io.Discard)
}

func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, action, message, requestID, nil, fields)
}

func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelDebug, action, message, requestID, nil, fields)
}

func (l *Logger) Warn(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelWarn, action, message, requestID, nil, fields)
}

// Error logs at error level. err may be nil.
func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	l.log(slog.LevelError, action, message, requestID, err, fields)
}

func (l *Logger) log(level slog.Level, action, message, requestID string, err error, fields map[string]interface{}) {
	attrs := make([]slog.Attr, 0, 6+len(fields))
	attrs = append(attrs,
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	)
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("stack", string(debug.Stack())),
		))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	l.handler.LogAttrs(context.TODO(), level, message, attrs...)
}

// GenerateRequestID returns a new uuid v4 string.
func GenerateRequestID() string {
	return uuid.NewString()
}

type ctxKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID, or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
