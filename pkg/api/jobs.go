package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evocloud/jobqueue/pkg/queue"
	"github.com/evocloud/jobqueue/pkg/tenant"
)

type enqueueRequest struct {
	JobType      string          `json:"job_type"`
	JobName      string          `json:"job_name,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Priority     *int8           `json:"priority,omitempty"`
	MaxRetries   *int8           `json:"max_retries,omitempty"`
	Timeout      int             `json:"timeout_seconds,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
}

type enqueueResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

func (h *Handler) enqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !h.decode(w, r, &req) {
		return
	}

	var opts []queue.EnqueueOption
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		opts = append(opts, queue.WithTenant(id))
	}
	if req.Priority != nil {
		opts = append(opts, queue.WithPriority(queue.Priority(*req.Priority)))
	}
	if req.MaxRetries != nil {
		opts = append(opts, queue.WithMaxRetries(*req.MaxRetries))
	}
	if req.Timeout > 0 {
		opts = append(opts, queue.WithTimeout(req.Timeout))
	}
	if req.ScheduledFor != nil {
		opts = append(opts, queue.WithScheduledFor(*req.ScheduledFor))
	}

	var payload any
	if req.Payload != nil {
		payload = req.Payload
	}

	jobID, err := h.enqueuer.Enqueue(r.Context(), req.JobType, req.JobName, payload, opts...)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, enqueueResponse{JobID: jobID})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.parseID(w, r, "jobID")
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handler) listJobLogs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.parseID(w, r, "jobID")
	if !ok {
		return
	}

	logs, err := h.jobs.ListJobLogs(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if logs == nil {
		logs = []*queue.JobLogEntry{}
	}

	h.respondJSON(w, http.StatusOK, logs)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.parseID(w, r, "jobID")
	if !ok {
		return
	}

	if err := h.jobs.CancelJob(r.Context(), jobID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// parseID reads a uuid path parameter, responding 400 on garbage.
func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
