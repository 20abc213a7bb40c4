package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation
type EnqueuerRepository interface {
	// CreateJob persists a new job in pending state
	CreateJob(ctx context.Context, job *Job) error

	// AppendJobLog appends an immutable log entry to a job's trail
	AppendJobLog(ctx context.Context, entry *JobLogEntry) error
}

// WorkerRepository defines the interface for worker operations.
// All coordination between workers happens through these operations;
// workers share no in-memory state.
type WorkerRepository interface {
	// ClaimJob atomically claims the next eligible job for the calling
	// worker. Eligible means status in (pending, retrying) and
	// scheduled_for <= now, optionally restricted to jobTypes. Selection
	// is priority-first with earliest scheduled_for breaking ties.
	// Concurrent callers never receive the same job and never block on
	// each other's in-flight claims. Returns ErrNoJobToClaim when idle.
	ClaimJob(ctx context.Context, workerID uuid.UUID, jobTypes []string) (*Job, error)

	// CompleteJob transitions a processing job to completed and stores
	// the handler's result document.
	CompleteJob(ctx context.Context, jobID uuid.UUID, result json.RawMessage) error

	// FailJob records a handler failure: increments retry_count and
	// either reschedules the job (status retrying, scheduled_for pushed
	// out by the backoff policy) or marks it failed once the retry
	// budget is exhausted. Returns the updated job so the caller can
	// route exhausted jobs to the DLQ.
	FailJob(ctx context.Context, jobID uuid.UUID, errMsg, errStack string) (*Job, error)

	// MoveToDLQ snapshots a failed job into the dead-letter queue and
	// stamps it moved_to_dlq. Idempotent: a second call for the same
	// job is a no-op. Jobs outside failed, processing, or retrying
	// return ErrJobNotDeadLetterable.
	MoveToDLQ(ctx context.Context, jobID uuid.UUID) error

	// AppendJobLog appends an immutable log entry to a job's trail
	AppendJobLog(ctx context.Context, entry *JobLogEntry) error
}

// JobRepository defines the read/cancel surface consumed by the API layer.
type JobRepository interface {
	// GetJob retrieves a job by id. Returns ErrJobNotFound when absent.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// ListJobLogs returns a job's log trail in write order.
	ListJobLogs(ctx context.Context, jobID uuid.UUID) ([]*JobLogEntry, error)

	// CancelJob flips a pending or retrying job to cancelled. Jobs that
	// are already claimed or finished return ErrJobNotCancellable;
	// in-flight processing jobs are never preempted.
	CancelJob(ctx context.Context, jobID uuid.UUID) error
}

// AdminRepository holds recovery operations used by operator tooling.
type AdminRepository interface {
	// ReleaseStaleClaims returns processing jobs whose claim is older
	// than the threshold back to pending, making them claimable again.
	// Covers workers that crashed while holding a claim.
	ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error)
}
