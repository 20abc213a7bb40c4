package dlq

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the operator-facing lifecycle of a dead-letter entry.
type Status string

const (
	// StatusFailed is the initial state of every entry.
	StatusFailed Status = "failed"
	// StatusReprocessing marks an entry whose job has been re-enqueued.
	StatusReprocessing Status = "reprocessing"
	// StatusResolved marks an entry closed by an operator as handled.
	StatusResolved Status = "resolved"
	// StatusAbandoned marks an entry closed by an operator as not worth recovering.
	StatusAbandoned Status = "abandoned"
)

// Closed reports whether the entry has reached an operator end state.
func (s Status) Closed() bool {
	return s == StatusResolved || s == StatusAbandoned
}

// Entry is a snapshot copy of a job that exhausted its retry budget.
// The original job is preserved untouched as an immutable failure record;
// reprocessing spawns a brand-new job identity from this snapshot.
type Entry struct {
	ID                uuid.UUID       `json:"id"`
	JobID             uuid.UUID       `json:"job_id"`
	JobType           string          `json:"job_type"`
	JobName           string          `json:"job_name"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	TenantID          *uuid.UUID      `json:"tenant_id,omitempty"`
	ErrorMessage      string          `json:"error_message"`
	ErrorStack        *string         `json:"error_stack,omitempty"`
	FailureCount      int8            `json:"failure_count"`
	MaxRetries        int8            `json:"max_retries"`
	Priority          int8            `json:"priority"`
	Status            Status          `json:"status"`
	Notes             *string         `json:"notes,omitempty"`
	ReprocessAttempts int             `json:"reprocess_attempts"`
	MovedToDLQAt      time.Time       `json:"moved_to_dlq_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
