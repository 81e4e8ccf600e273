package httpserver

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	obsctx "github.com/fairyhunter13/ai-mock-interview/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// Client supplied ids are echoed only when they look like ids.
var reRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Recoverer turns a panic into a 500 with the standard error envelope.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFrom(r).Error("panic recovered", slog.Any("recover", rec), slog.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: apiError{Code: "INTERNAL", Message: "internal error"}})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID assigns the request id and seeds the request-scoped logger with
// it. TraceMiddleware adds the trace ids.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !reRequestID.MatchString(reqID) {
				reqID = newReqID()
				r.Header.Set(requestIDHeader, reqID)
			}
			logger := slog.Default().With(slog.String("request_id", reqID))
			ctx := obsctx.ContextWithRequestID(obsctx.ContextWithLogger(r.Context(), logger), reqID)
			w.Header().Set(requestIDHeader, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityHeaders adds strict security headers suitable for a JSON API.
// HSTS is left to the edge proxy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// LoggerFrom returns the request-scoped logger, which carries user_id once authenticated.
func LoggerFrom(r *http.Request) *slog.Logger {
	return obsctx.LoggerFromContext(r.Context())
}

// newReqID returns a ULID; ulid.Make is safe for concurrent use.
func newReqID() string {
	return ulid.Make().String()
}

// AccessLog writes one http_access line per request, at warn for 4xx and
// error for 5xx.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			LoggerFrom(r).LogAttrs(r.Context(), level, "http_access",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// routePattern matches the label used by the Prometheus middleware.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
