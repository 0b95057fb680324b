package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/marcus/teamtask/internal/apperr"
)

// Error code constants for structured API error responses.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_failed"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeCycle        = "dependency_cycle"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// writeDomainError maps service-layer errors to HTTP responses.
// Validation failures map to 400, authorization failures to 403,
// missing records to 404, and dependency cycles to 409. Anything else
// is an internal error; its detail goes to the log, not the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsValidation(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case apperr.IsForbidden(err):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case apperr.IsNotFound(err):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case apperr.IsCycle(err):
		writeError(w, http.StatusConflict, ErrCodeCycle, err.Error())
	default:
		logFor(r.Context()).Error("internal error", "err", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// warning is the response fragment that reports a failed side effect on
// an otherwise successful mutation.
type warning struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// warningsFrom flattens a possibly joined side-effect error into
// response warnings.
func warningsFrom(err error) []warning {
	if err == nil {
		return nil
	}
	var out []warning
	for _, e := range flatten(err) {
		var sef *apperr.SideEffectFailure
		if errors.As(e, &sef) {
			out = append(out, warning{Channel: sef.Channel, Message: sef.Error()})
		} else {
			out = append(out, warning{Channel: "unknown", Message: e.Error()})
		}
	}
	return out
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
