package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/tenant"
)

type closeEntryRequest struct {
	Notes string `json:"notes,omitempty"`
}

type reprocessResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

func (h *Handler) listDLQEntries(w http.ResponseWriter, r *http.Request) {
	filter := dlq.Filter{
		Status: dlq.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		filter.TenantID = &id
	}

	entries, err := h.dlq.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*dlq.Entry{}
	}

	h.respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) getDLQEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.parseID(w, r, "entryID")
	if !ok {
		return
	}

	entry, err := h.dlq.Get(r.Context(), entryID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

func (h *Handler) reprocessDLQEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.parseID(w, r, "entryID")
	if !ok {
		return
	}

	job, err := h.dlq.Reprocess(r.Context(), entryID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, reprocessResponse{JobID: job.ID})
}

func (h *Handler) resolveDLQEntry(w http.ResponseWriter, r *http.Request) {
	h.closeDLQEntry(w, r, h.dlq.Resolve, "resolved")
}

func (h *Handler) abandonDLQEntry(w http.ResponseWriter, r *http.Request) {
	h.closeDLQEntry(w, r, h.dlq.Abandon, "abandoned")
}

func (h *Handler) closeDLQEntry(w http.ResponseWriter, r *http.Request, close func(ctx context.Context, entryID uuid.UUID, notes string) error, status string) {
	entryID, ok := h.parseID(w, r, "entryID")
	if !ok {
		return
	}

	var req closeEntryRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}

	if err := close(r.Context(), entryID, req.Notes); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
