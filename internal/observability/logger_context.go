// Package observability carries request-scoped logging state through context.
//
// The HTTP layer stores a logger and request id; the interview service adds
// the session id so that pipeline and generator logs can be joined per session.
package observability

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	sessionIDKey
)

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, lg)
}

// LoggerFromContext returns the stored logger, or slog.Default, tagged with the
// session id when one is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	lg, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || lg == nil {
		lg = slog.Default()
	}
	if id := SessionIDFromContext(ctx); id != "" {
		lg = lg.With(slog.String("session_id", id))
	}
	return lg
}

// ContextWithRequestID stores a non-empty request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string { return stringFrom(ctx, requestIDKey) }

// ContextWithSessionID stores a non-empty interview session id.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return withString(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session id or "".
func SessionIDFromContext(ctx context.Context) string { return stringFrom(ctx, sessionIDKey) }

func withString(ctx context.Context, k ctxKey, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

func stringFrom(ctx context.Context, k ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
