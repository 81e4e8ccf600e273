// Package observability carries request-scoped values shared by every layer.
package observability

import (
	"context"
	"log/slog"
)

// loggerContextKey is the private context key used to store a *slog.Logger.
type loggerContextKey struct{}

// requestIDContextKey stores the originating HTTP request_id.
type requestIDContextKey struct{}

// userIDContextKey stores the authenticated caller.
type userIDContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request_id in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request_id, or "" when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDContextKey{}).(string)
	return rid
}

// ContextWithUserID stores the authenticated caller and enriches the
// context logger with a user_id attribute.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, userIDContextKey{}, userID)
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With(slog.String("user_id", userID)))
}

// UserIDFromContext returns the authenticated caller, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	uid, _ := ctx.Value(userIDContextKey{}).(string)
	return uid
}
