package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/tenant"
)

type thresholdRequest struct {
	AlertType alerts.AlertType `json:"alert_type"`
	Threshold float64          `json:"threshold"`
	Unit      string           `json:"unit,omitempty"`
	Enabled   bool             `json:"enabled"`
	Channels  []string         `json:"channels,omitempty"`
}

func (h *Handler) listThresholds(w http.ResponseWriter, r *http.Request) {
	configs, err := h.monitor.Thresholds(r.Context(), tenantFromRequest(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if configs == nil {
		configs = []*alerts.ThresholdConfig{}
	}

	h.respondJSON(w, http.StatusOK, configs)
}

func (h *Handler) putThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if !h.decode(w, r, &req) {
		return
	}

	cfg := &alerts.ThresholdConfig{
		TenantID:  tenantFromRequest(r),
		AlertType: req.AlertType,
		Threshold: req.Threshold,
		Unit:      req.Unit,
		Enabled:   req.Enabled,
		Channels:  req.Channels,
	}

	if err := h.monitor.ConfigureThreshold(r.Context(), cfg); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, cfg)
}

func (h *Handler) deleteThreshold(w http.ResponseWriter, r *http.Request) {
	configID, ok := h.parseID(w, r, "configID")
	if !ok {
		return
	}

	if err := h.monitor.RemoveThreshold(r.Context(), configID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// tenantFromRequest returns the tenant scope of the request, nil when the
// request operates across all tenants.
func tenantFromRequest(r *http.Request) *uuid.UUID {
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}
