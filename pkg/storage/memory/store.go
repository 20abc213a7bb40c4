// Package memory provides an in-memory implementation of every queue
// repository interface, for tests and local development. All operations
// are safe for concurrent use; a single mutex makes each operation atomic,
// which is what gives ClaimJob its exactly-once guarantee here.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/backoff"
	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/queue"
)

// Store implements the queue, dlq, and alerts repository interfaces in memory.
type Store struct {
	mu         sync.RWMutex
	jobs       map[uuid.UUID]*queue.Job
	logs       map[uuid.UUID][]*queue.JobLogEntry
	entries    map[uuid.UUID]*dlq.Entry
	entryByJob map[uuid.UUID]uuid.UUID
	thresholds map[uuid.UUID]*alerts.ThresholdConfig

	strategy backoff.Strategy
}

// Option configures a Store.
type Option func(*Store)

// WithBackoffStrategy overrides the retry backoff strategy.
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(st *Store) {
		if s != nil {
			st.strategy = s
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:       make(map[uuid.UUID]*queue.Job),
		logs:       make(map[uuid.UUID][]*queue.JobLogEntry),
		entries:    make(map[uuid.UUID]*dlq.Entry),
		entryByJob: make(map[uuid.UUID]uuid.UUID),
		thresholds: make(map[uuid.UUID]*alerts.ThresholdConfig),
		strategy:   backoff.DefaultStrategy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// queue.EnqueuerRepository
// ──────────────────────────────────────────────────

// CreateJob stores a new job.
func (s *Store) CreateJob(_ context.Context, job *queue.Job) error {
	if job == nil {
		return queue.ErrJobNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to prevent external modifications
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// AppendJobLog appends an immutable log entry to a job's trail.
func (s *Store) AppendJobLog(_ context.Context, entry *queue.JobLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.logs[entry.JobID] = append(s.logs[entry.JobID], &cp)
	return nil
}

// ──────────────────────────────────────────────────
// queue.WorkerRepository
// ──────────────────────────────────────────────────

// ClaimJob atomically claims the next eligible job: highest priority first,
// earliest scheduled_for breaking ties. Returns queue.ErrNoJobToClaim when
// nothing is eligible.
func (s *Store) ClaimJob(_ context.Context, workerID uuid.UUID, jobTypes []string) (*queue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var best *queue.Job
	for _, job := range s.jobs {
		if !job.Status.Claimable() || job.ScheduledFor.After(now) {
			continue
		}
		if len(jobTypes) > 0 && !contains(jobTypes, job.JobType) {
			continue
		}
		if best == nil ||
			job.Priority > best.Priority ||
			(job.Priority == best.Priority && job.ScheduledFor.Before(best.ScheduledFor)) {
			best = job
		}
	}

	if best == nil {
		return nil, queue.ErrNoJobToClaim
	}

	best.Status = queue.StatusProcessing
	best.LockedBy = &workerID
	best.StartedAt = &now
	best.UpdatedAt = now

	s.appendLogLocked(best.ID, queue.LogLevelInfo, queue.LogMsgClaimed, map[string]any{
		"worker_id": workerID,
	})

	cp := *best
	return &cp, nil
}

// CompleteJob transitions a processing job to completed.
func (s *Store) CompleteJob(_ context.Context, jobID uuid.UUID, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return queue.ErrJobNotFound
	}
	if job.Status != queue.StatusProcessing {
		return queue.ErrJobNotProcessing
	}

	now := time.Now()
	job.Status = queue.StatusCompleted
	job.Result = result
	job.CompletedAt = &now
	job.LockedBy = nil
	job.UpdatedAt = now
	return nil
}

// FailJob increments the retry count and either reschedules the job with
// backoff or marks it failed once the budget is exhausted.
func (s *Store) FailJob(_ context.Context, jobID uuid.UUID, errMsg, errStack string) (*queue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, queue.ErrJobNotFound
	}
	if job.Status != queue.StatusProcessing {
		return nil, queue.ErrJobNotProcessing
	}

	now := time.Now()
	job.RetryCount++
	job.ErrorMessage = &errMsg
	if errStack != "" {
		job.ErrorStack = &errStack
	}
	job.LockedBy = nil
	job.UpdatedAt = now

	meta := map[string]any{
		"error":       errMsg,
		"retry_count": job.RetryCount,
		"max_retries": job.MaxRetries,
	}

	if job.RetryCount >= job.MaxRetries {
		job.Status = queue.StatusFailed
	} else {
		delay := s.strategy.Delay(int(job.RetryCount))
		job.Status = queue.StatusRetrying
		job.ScheduledFor = now.Add(delay)
		meta["retry_delay"] = delay.String()
		meta["next_attempt_at"] = job.ScheduledFor
	}

	s.appendLogLocked(job.ID, queue.LogLevelError, queue.LogMsgFailed, meta)

	cp := *job
	return &cp, nil
}

// MoveToDLQ snapshots a failed job into the dead-letter queue. Idempotent:
// once a job carries the moved_to_dlq status, further calls are no-ops.
func (s *Store) MoveToDLQ(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return queue.ErrJobNotFound
	}
	if job.Status == queue.StatusMovedToDLQ {
		return nil
	}
	switch job.Status {
	case queue.StatusFailed, queue.StatusProcessing, queue.StatusRetrying:
	default:
		return queue.ErrJobNotDeadLetterable
	}

	now := time.Now()
	entry := &dlq.Entry{
		ID:           uuid.New(),
		JobID:        job.ID,
		JobType:      job.JobType,
		JobName:      job.JobName,
		Payload:      job.Payload,
		TenantID:     job.TenantID,
		FailureCount: job.RetryCount,
		MaxRetries:   job.MaxRetries,
		Priority:     int8(job.Priority),
		Status:       dlq.StatusFailed,
		MovedToDLQAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if job.ErrorMessage != nil {
		entry.ErrorMessage = *job.ErrorMessage
	}
	entry.ErrorStack = job.ErrorStack

	s.entries[entry.ID] = entry
	s.entryByJob[job.ID] = entry.ID

	job.Status = queue.StatusMovedToDLQ
	job.LockedBy = nil
	job.UpdatedAt = now

	s.appendLogLocked(job.ID, queue.LogLevelError, queue.LogMsgMovedToDLQ, map[string]any{
		"dlq_entry_id":  entry.ID,
		"failure_count": entry.FailureCount,
	})
	return nil
}

// ──────────────────────────────────────────────────
// queue.JobRepository
// ──────────────────────────────────────────────────

// GetJob retrieves a job by id.
func (s *Store) GetJob(_ context.Context, jobID uuid.UUID) (*queue.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, queue.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// ListJobLogs returns a job's log trail in write order.
func (s *Store) ListJobLogs(_ context.Context, jobID uuid.UUID) ([]*queue.JobLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.jobs[jobID]; !ok {
		return nil, queue.ErrJobNotFound
	}

	entries := s.logs[jobID]
	out := make([]*queue.JobLogEntry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// CancelJob flips a pending or retrying job to cancelled.
func (s *Store) CancelJob(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return queue.ErrJobNotFound
	}
	if !job.Status.Claimable() {
		return queue.ErrJobNotCancellable
	}

	now := time.Now()
	job.Status = queue.StatusCancelled
	job.CompletedAt = &now
	job.UpdatedAt = now

	s.appendLogLocked(job.ID, queue.LogLevelInfo, queue.LogMsgCancelled, nil)
	return nil
}

// ──────────────────────────────────────────────────
// queue.AdminRepository
// ──────────────────────────────────────────────────

// ReleaseStaleClaims returns processing jobs whose claim is older than the
// threshold back to pending, preserving their retry count.
func (s *Store) ReleaseStaleClaims(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var released int64
	for _, job := range s.jobs {
		if job.Status != queue.StatusProcessing || job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}
		job.Status = queue.StatusPending
		job.LockedBy = nil
		job.StartedAt = nil
		job.UpdatedAt = time.Now()
		s.appendLogLocked(job.ID, queue.LogLevelWarn, "stale claim released", nil)
		released++
	}
	return released, nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

// GetEntry retrieves a dead-letter entry by id.
func (s *Store) GetEntry(_ context.Context, entryID uuid.UUID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return nil, dlq.ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

// ListEntries returns dead-letter entries matching the filter, newest first.
func (s *Store) ListEntries(_ context.Context, filter dlq.Filter) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*dlq.Entry
	for _, entry := range s.entries {
		if !matchesFilter(entry, filter) {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MovedToDLQAt.After(out[j].MovedToDLQAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkReprocessing flips an entry to reprocessing and bumps its counter.
func (s *Store) MarkReprocessing(_ context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return dlq.ErrEntryNotFound
	}
	if entry.Status.Closed() {
		return dlq.ErrEntryClosed
	}

	entry.Status = dlq.StatusReprocessing
	entry.ReprocessAttempts++
	entry.UpdatedAt = time.Now()
	return nil
}

// CloseEntry stamps an entry resolved or abandoned with operator notes.
func (s *Store) CloseEntry(_ context.Context, entryID uuid.UUID, status dlq.Status, notes string) error {
	if !status.Closed() {
		return dlq.ErrInvalidCloseStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return dlq.ErrEntryNotFound
	}
	if entry.Status.Closed() {
		return dlq.ErrEntryClosed
	}

	entry.Status = status
	if notes != "" {
		entry.Notes = &notes
	}
	entry.UpdatedAt = time.Now()
	return nil
}

// CountEntries returns the number of entries matching the filter.
func (s *Store) CountEntries(_ context.Context, filter dlq.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, entry := range s.entries {
		if matchesFilter(entry, filter) {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// alerts.ConfigRepository
// ──────────────────────────────────────────────────

// SaveThreshold upserts a threshold config keyed by tenant and alert type.
func (s *Store) SaveThreshold(_ context.Context, cfg *alerts.ThresholdConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace any existing config for the same tenant+type pair
	for id, existing := range s.thresholds {
		if existing.AlertType == cfg.AlertType && sameTenant(existing.TenantID, cfg.TenantID) {
			delete(s.thresholds, id)
			break
		}
	}

	cp := *cfg
	s.thresholds[cfg.ID] = &cp
	return nil
}

// ListThresholds returns configs for a tenant (nil lists every config).
func (s *Store) ListThresholds(_ context.Context, tenantID *uuid.UUID) ([]*alerts.ThresholdConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alerts.ThresholdConfig
	for _, cfg := range s.thresholds {
		if tenantID != nil && !sameTenant(cfg.TenantID, tenantID) {
			continue
		}
		cp := *cfg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteThreshold removes a threshold config by id.
func (s *Store) DeleteThreshold(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.thresholds[id]; !ok {
		return alerts.ErrThresholdNotFound
	}
	delete(s.thresholds, id)
	return nil
}

// ListEnabledThresholds returns every enabled config across tenants.
func (s *Store) ListEnabledThresholds(_ context.Context) ([]*alerts.ThresholdConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alerts.ThresholdConfig
	for _, cfg := range s.thresholds {
		if !cfg.Enabled {
			continue
		}
		cp := *cfg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// alerts.StatsRepository
// ──────────────────────────────────────────────────

// FailureRate returns the percentage of job executions that failed over
// the trailing window, derived from the error-level failure log entries
// and completed jobs.
func (s *Store) FailureRate(_ context.Context, tenantID *uuid.UUID, window time.Duration) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-window)
	var failures, successes float64

	for jobID, entries := range s.logs {
		job, ok := s.jobs[jobID]
		if !ok || !tenantMatches(job.TenantID, tenantID) {
			continue
		}
		for _, e := range entries {
			if e.Level == queue.LogLevelError && e.Message == queue.LogMsgFailed && e.CreatedAt.After(since) {
				failures++
			}
		}
	}
	for _, job := range s.jobs {
		if !tenantMatches(job.TenantID, tenantID) {
			continue
		}
		if job.Status == queue.StatusCompleted && job.CompletedAt != nil && job.CompletedAt.After(since) {
			successes++
		}
	}

	total := failures + successes
	if total == 0 {
		return 0, nil
	}
	return failures / total * 100, nil
}

// DLQGrowth returns how many jobs were dead-lettered over the window.
func (s *Store) DLQGrowth(_ context.Context, tenantID *uuid.UUID, window time.Duration) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-window)
	var n int64
	for _, entry := range s.entries {
		if tenantMatches(entry.TenantID, tenantID) && entry.MovedToDLQAt.After(since) {
			n++
		}
	}
	return n, nil
}

// QueueDepth returns the current backlog of claimable jobs.
func (s *Store) QueueDepth(_ context.Context, tenantID *uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, job := range s.jobs {
		if tenantMatches(job.TenantID, tenantID) && job.Status.Claimable() {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────

// appendLogLocked appends a log entry; callers must hold the mutex.
func (s *Store) appendLogLocked(jobID uuid.UUID, level queue.LogLevel, message string, metadata map[string]any) {
	s.logs[jobID] = append(s.logs[jobID], queue.NewJobLogEntry(jobID, level, message, metadata))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func matchesFilter(entry *dlq.Entry, filter dlq.Filter) bool {
	if filter.TenantID != nil && !sameTenant(entry.TenantID, filter.TenantID) {
		return false
	}
	if filter.Status != "" && entry.Status != filter.Status {
		return false
	}
	return true
}

// sameTenant compares two optional tenant ids for equality.
func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// tenantMatches applies the stats tenant filter: nil aggregates everything.
func tenantMatches(jobTenant, filter *uuid.UUID) bool {
	if filter == nil {
		return true
	}
	return jobTenant != nil && *jobTenant == *filter
}
