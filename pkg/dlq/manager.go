package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evocloud/jobqueue/pkg/queue"
)

// reprocessPriorityBoost is how many priority steps a reprocessed job gains
// over the original so it jumps the queue.
const reprocessPriorityBoost = 2

// Manager provides operator-facing dead-letter operations: inspection,
// reprocessing back into the live queue, and closing entries.
type Manager struct {
	store  Store
	jobs   queue.EnqueuerRepository
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a dead-letter manager.
func NewManager(store Store, jobs queue.EnqueuerRepository, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if jobs == nil {
		return nil, ErrJobRepositoryNil
	}

	m := &Manager{
		store:  store,
		jobs:   jobs,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Get retrieves a single dead-letter entry.
func (m *Manager) Get(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return m.store.GetEntry(ctx, entryID)
}

// List returns dead-letter entries matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	return m.store.ListEntries(ctx, filter)
}

// Reprocess re-enqueues a dead-letter entry as a brand-new job and marks
// the entry reprocessing. The new job gets a fresh identity, a zero retry
// count, a full retry budget, and a priority elevated above the original so
// it jumps the queue. The original job remains an immutable failure record.
func (m *Manager) Reprocess(ctx context.Context, entryID uuid.UUID) (*queue.Job, error) {
	entry, err := m.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status.Closed() {
		return nil, ErrEntryClosed
	}

	now := time.Now()
	job := &queue.Job{
		ID:           uuid.New(),
		JobType:      entry.JobType,
		JobName:      entry.JobName,
		Status:       queue.StatusPending,
		Priority:     queue.Priority(entry.Priority).Elevate(reprocessPriorityBoost),
		TenantID:     entry.TenantID,
		Payload:      entry.Payload,
		RetryCount:   0,
		MaxRetries:   entry.MaxRetries,
		ScheduledFor: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create reprocessed job for entry %s: %w", entryID, err)
	}

	logEntry := queue.NewJobLogEntry(job.ID, queue.LogLevelInfo, queue.LogMsgReprocessed, map[string]any{
		"dlq_entry_id": entry.ID,
		"original_job": entry.JobID,
		"priority":     job.Priority,
	})
	if err := m.jobs.AppendJobLog(ctx, logEntry); err != nil {
		return nil, fmt.Errorf("failed to write reprocess log for job %s: %w", job.ID, err)
	}

	if err := m.store.MarkReprocessing(ctx, entryID); err != nil {
		// The new job is already enqueued; surface the bookkeeping
		// failure but hand the job back to the caller.
		m.logger.Error("failed to mark dead-letter entry as reprocessing",
			slog.String("entry_id", entryID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
		return job, err
	}

	m.logger.Info("dead-letter entry reprocessed",
		slog.String("entry_id", entryID.String()),
		slog.String("original_job_id", entry.JobID.String()),
		slog.String("new_job_id", job.ID.String()))

	return job, nil
}

// Resolve closes an entry as handled, with operator notes.
func (m *Manager) Resolve(ctx context.Context, entryID uuid.UUID, notes string) error {
	return m.store.CloseEntry(ctx, entryID, StatusResolved, notes)
}

// Abandon closes an entry as not worth recovering, with operator notes.
func (m *Manager) Abandon(ctx context.Context, entryID uuid.UUID, notes string) error {
	return m.store.CloseEntry(ctx, entryID, StatusAbandoned, notes)
}
