package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/queue"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// respondError maps domain errors onto HTTP status codes. Unknown errors
// become 500 with a generic body so internals never leak to callers.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, queue.ErrJobNotFound),
		errors.Is(err, dlq.ErrEntryNotFound),
		errors.Is(err, alerts.ErrThresholdNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, queue.ErrJobNotCancellable),
		errors.Is(err, dlq.ErrEntryClosed),
		errors.Is(err, dlq.ErrInvalidCloseStatus):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, queue.ErrJobTypeEmpty),
		errors.Is(err, queue.ErrPayloadNil),
		errors.Is(err, queue.ErrInvalidPriority),
		errors.Is(err, queue.ErrInvalidMaxRetries),
		errors.Is(err, alerts.ErrInvalidAlertType),
		errors.Is(err, alerts.ErrInvalidThreshold):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}

	h.respondJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
