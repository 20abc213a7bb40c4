package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enqueuer handles job enqueueing
type Enqueuer struct {
	repo              EnqueuerRepository
	defaultPriority   Priority
	defaultMaxRetries int8
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultPriority:   PriorityDefault,
		defaultMaxRetries: 3,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:              repo,
		defaultPriority:   options.defaultPriority,
		defaultMaxRetries: options.defaultMaxRetries,
	}, nil
}

// Enqueue adds a new job to the queue and returns its id. The job becomes
// visible to claiming workers as soon as the write commits.
func (e *Enqueuer) Enqueue(ctx context.Context, jobType, jobName string, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if jobType == "" {
		return uuid.Nil, ErrJobTypeEmpty
	}
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	// Apply default options
	options := &enqueueOptions{
		priority:   e.defaultPriority,
		maxRetries: e.defaultMaxRetries,
	}

	// Apply user options
	for _, opt := range opts {
		opt(options)
	}

	// Producer errors are rejected before any row is written
	if !options.priority.Valid() {
		return uuid.Nil, ErrInvalidPriority
	}
	if options.maxRetries < 0 {
		return uuid.Nil, ErrInvalidMaxRetries
	}

	job, err := e.buildJob(jobType, jobName, payload, options)
	if err != nil {
		return uuid.Nil, err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job %q of type %q: %w", job.JobName, job.JobType, err)
	}

	// The enqueue event opens the job's audit trail
	entry := NewJobLogEntry(job.ID, LogLevelInfo, LogMsgEnqueued, map[string]any{
		"priority":      job.Priority,
		"scheduled_for": job.ScheduledFor,
	})
	if err := e.repo.AppendJobLog(ctx, entry); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write enqueue log for job %s: %w", job.ID, err)
	}

	return job.ID, nil
}

// buildJob constructs a Job from payload and options
func (e *Enqueuer) buildJob(jobType, jobName string, payload any, options *enqueueOptions) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	if jobName == "" {
		jobName = jobType
	}

	// Calculate scheduled time; defaults to immediately claimable
	now := time.Now()
	scheduledFor := now
	if options.scheduledFor != nil {
		scheduledFor = *options.scheduledFor
	} else if options.delay > 0 {
		scheduledFor = now.Add(options.delay)
	}

	return &Job{
		ID:             uuid.New(),
		JobType:        jobType,
		JobName:        jobName,
		Status:         StatusPending,
		Priority:       options.priority,
		TenantID:       options.tenantID,
		Payload:        payloadBytes,
		RetryCount:     0,
		MaxRetries:     options.maxRetries,
		TimeoutSeconds: options.timeoutSeconds,
		ScheduledFor:   scheduledFor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
