package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/userdesk/internal/domain"
)

// envelope is the body of every successful response. Data is always
// written, so a missing record comes out as "data": null.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// result is what an endpoint hands back to serve.
type result struct {
	Status int
	Body   any
}

func ok(data any) *result {
	return &result{Status: http.StatusOK, Body: envelope{Success: true, Data: data}}
}

func created(data any) *result {
	return &result{Status: http.StatusCreated, Body: envelope{Success: true, Data: data}}
}

// endpoint is a handler that returns its outcome instead of writing it.
type endpoint func(w http.ResponseWriter, r *http.Request) (*result, error)

// serve turns an endpoint into an http.Handler. It is the only place where
// endpoint errors become HTTP responses.
func serve(fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(w, r)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, res.Status, res.Body)
	}
}

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError sends a failure envelope with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failureBody{Success: false, Error: message})
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

// statusFor maps an error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return http.StatusBadRequest, "Duplicate field value entered"
	}

	var derr *domain.Error
	hasMsg := errors.As(err, &derr)
	pick := func(status int, fallback string) (int, string) {
		if hasMsg {
			return status, derr.Message
		}
		return status, fallback
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return pick(http.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return pick(http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		return pick(http.StatusUnauthorized, "Not authorized to access this route")
	case errors.Is(err, domain.ErrForbidden):
		return pick(http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrStorage):
		return pick(http.StatusInternalServerError, "Server Error")
	default:
		return http.StatusInternalServerError, "Server Error"
	}
}

// readJSON decodes the request body into the given destination.
func readJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Errorf(domain.ErrInvalidInput, "Invalid request body")
	}
	return nil
}
