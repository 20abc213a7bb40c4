package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
	StatusRetrying   JobStatus = "retrying"
	StatusMovedToDLQ JobStatus = "moved_to_dlq"
)

// Claimable reports whether a job in this status can be handed to a worker.
// Only pending and retrying jobs are eligible; the scheduled_for check is
// applied separately at the storage layer.
func (s JobStatus) Claimable() bool {
	return s == StatusPending || s == StatusRetrying
}

// Terminal reports whether the status is an end state that no transition
// leaves. Jobs are never deleted, only terminal-stamped.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusMovedToDLQ:
		return true
	}
	return false
}

// Priority represents job priority (1-10, higher claims first)
// Using int8 provides sufficient range while keeping memory footprint minimal
type Priority int8

// Priority constants
const (
	PriorityMin     Priority = 1
	PriorityLow     Priority = 3
	PriorityMedium  Priority = 5
	PriorityHigh    Priority = 8
	PriorityMax     Priority = 10
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Elevate returns a priority raised by n steps, capped at PriorityMax.
// Used when a dead-lettered job is reprocessed so it jumps the queue.
func (p Priority) Elevate(n int8) Priority {
	e := p + Priority(n)
	if e > PriorityMax {
		return PriorityMax
	}
	return e
}

// LogLevel represents the severity of a job log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Job represents a durable unit of asynchronous work.
//
// TenantID is nil for system jobs that do not belong to any tenant.
// Payload is opaque to the queue core; only the handler registered for
// JobType interprets it.
type Job struct {
	ID             uuid.UUID       `json:"id"`
	JobType        string          `json:"job_type"`
	JobName        string          `json:"job_name"`
	Status         JobStatus       `json:"status"`
	Priority       Priority        `json:"priority"`
	TenantID       *uuid.UUID      `json:"tenant_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	ErrorStack     *string         `json:"error_stack,omitempty"`
	RetryCount     int8            `json:"retry_count"`
	MaxRetries     int8            `json:"max_retries"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	ScheduledFor   time.Time       `json:"scheduled_for"`
	LockedBy       *uuid.UUID      `json:"locked_by,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Timeout returns the execution deadline for the job as a duration.
// The queue core does not enforce the deadline itself; the worker loop
// derives the handler context from it.
func (j *Job) Timeout(fallback time.Duration) time.Duration {
	if j.TimeoutSeconds > 0 {
		return time.Duration(j.TimeoutSeconds) * time.Second
	}
	return fallback
}

// Messages written by the queue core itself. Stats queries key off these,
// so storage implementations must use them verbatim.
const (
	LogMsgEnqueued    = "job enqueued"
	LogMsgClaimed     = "job claimed"
	LogMsgFailed      = "job execution failed"
	LogMsgMovedToDLQ  = "job moved to dead letter queue"
	LogMsgCancelled   = "job cancelled"
	LogMsgReprocessed = "job reprocessed from dead letter queue"
)

// JobLogEntry is an append-only progress/diagnostic record owned by a job.
// Entries are immutable once written and are cascade-deleted with the job.
type JobLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	JobID     uuid.UUID      `json:"job_id"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewJobLogEntry builds a log entry for the given job with the current timestamp.
func NewJobLogEntry(jobID uuid.UUID, level LogLevel, message string, metadata map[string]any) *JobLogEntry {
	return &JobLogEntry{
		ID:        uuid.New(),
		JobID:     jobID,
		Level:     level,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
