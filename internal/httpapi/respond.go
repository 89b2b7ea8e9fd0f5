package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the shape of every error response.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// badRequestError marks a body that could not be decoded.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON object into dst. An empty body leaves dst at its
// zero value. Unknown fields are ignored; clients send fields such as
// userRole that the server does not use.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &badRequestError{err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &badRequestError{err: errors.New("request body must contain exactly one JSON object")}
	}
	return nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		badReq  *badRequestError
		invalid *event.ValidationError
	)
	switch {
	case errors.As(err, &badReq), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, command.ErrNotFound):
		return http.StatusNotFound
	case command.IsPrecondition(err):
		return http.StatusForbidden
	case eventlog.IsConflict(err):
		return http.StatusConflict
	case eventlog.IsStorageUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Server-side failures are
// logged and their detail is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()

	switch {
	case status == http.StatusServiceUnavailable:
		logger.Warn("storage unavailable", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
		msg = "Storage unavailable"
	case status >= http.StatusInternalServerError:
		logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"code", eventlog.CodeOf(err),
			"error", err,
		)
		msg = "Internal server error"
	}

	writeJSON(w, status, errorBody{Success: false, Message: msg})
}
