// Package httpserver contains the interview API handlers and middleware.
//
// Errors flow up from the usecases wrapped around domain sentinels and are
// mapped once here into the {"error":{"code","message","details"}} envelope.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and code. Persistence and unexpected
// failures get a generic message; the cause is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		code = http.StatusUnauthorized
		codeStr = "UNAUTHENTICATED"
		msg = "authentication required"
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
		msg = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
		msg = "not found"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
		msg = err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
		msg = "too many requests"
	case errors.Is(err, domain.ErrPersistence):
		codeStr = "SAVE_FAILED"
		msg = "failed to save"
	}
	if code >= 500 {
		LoggerFrom(r).Error("request failed", slog.String("code", codeStr), slog.Any("error", err))
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: msg, Details: details}})
}
