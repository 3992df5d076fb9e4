package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"benchd/internal/bench"
	"benchd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case bench.IsNotFound(err):
		return http.StatusNotFound
	case bench.IsBusy(err):
		return http.StatusConflict
	case bench.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, bench.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("encode response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeError maps err to a status and writes it.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusConflict || status == http.StatusServiceUnavailable {
		IncrementRejections(rejectionReason(status))
	}
	writeJSONError(w, status, err.Error())
	return status
}

func rejectionReason(status int) string {
	if status == http.StatusConflict {
		return "busy"
	}
	return "closed"
}
