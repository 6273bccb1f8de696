// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/camhls/internal/domain/stream/manager"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// classify maps orchestrator errors onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, manager.ErrInvalidScheme):
		return http.StatusBadRequest, "invalid_scheme"
	case errors.Is(err, manager.ErrMissingURL):
		return http.StatusBadRequest, "missing_url"
	case errors.Is(err, manager.ErrInvalidCameraID):
		return http.StatusBadRequest, "invalid_camera_id"
	case errors.Is(err, manager.ErrUnknownQuality):
		return http.StatusBadRequest, "unknown_quality"
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, manager.ErrProcessExited):
		return http.StatusBadGateway, "process_exited"
	case errors.Is(err, manager.ErrLaunchFailed):
		return http.StatusBadGateway, "launch_failed"
	case errors.Is(err, manager.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
