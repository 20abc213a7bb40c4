package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/queue"
	"github.com/evocloud/jobqueue/pkg/tenant"
)

// Handler bundles the queue services the operator API exposes.
type Handler struct {
	enqueuer *queue.Enqueuer
	jobs     queue.JobRepository
	dlq      *dlq.Manager
	monitor  *alerts.Monitor
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger for API handlers.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates the operator API handler.
func NewHandler(enqueuer *queue.Enqueuer, jobs queue.JobRepository, manager *dlq.Manager, monitor *alerts.Monitor, opts ...HandlerOption) (*Handler, error) {
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}
	if jobs == nil {
		return nil, ErrJobRepositoryNil
	}
	if manager == nil {
		return nil, ErrDLQManagerNil
	}
	if monitor == nil {
		return nil, ErrMonitorNil
	}

	h := &Handler{
		enqueuer: enqueuer,
		jobs:     jobs,
		dlq:      manager,
		monitor:  monitor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Router builds the operator API. Mount it under a path prefix of your
// choosing:
//
//	r := chi.NewRouter()
//	r.Mount("/queue", handler.Router())
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(tenant.Middleware())

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.enqueueJob)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h.getJob)
			r.Get("/logs", h.listJobLogs)
			r.Post("/cancel", h.cancelJob)
		})
	})

	r.Route("/dlq", func(r chi.Router) {
		r.Get("/", h.listDLQEntries)
		r.Route("/{entryID}", func(r chi.Router) {
			r.Get("/", h.getDLQEntry)
			r.Post("/reprocess", h.reprocessDLQEntry)
			r.Post("/resolve", h.resolveDLQEntry)
			r.Post("/abandon", h.abandonDLQEntry)
		})
	})

	r.Route("/alerts/thresholds", func(r chi.Router) {
		r.Get("/", h.listThresholds)
		r.Put("/", h.putThreshold)
		r.Delete("/{configID}", h.deleteThreshold)
	})

	return r
}
