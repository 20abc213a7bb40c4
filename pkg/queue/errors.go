package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrJobTypeEmpty is returned when enqueueing without a job type
	ErrJobTypeEmpty = errors.New("job type cannot be empty")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")

	// ErrInvalidMaxRetries is returned when max retries is negative
	ErrInvalidMaxRetries = errors.New("max retries cannot be negative")

	// ErrNoJobToClaim signals that no eligible job exists. It is the idle
	// signal for polling workers, not a failure.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobNotFound is returned when a job id does not exist in storage
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotProcessing is returned when a completion or failure report
	// targets a job that is not currently claimed
	ErrJobNotProcessing = errors.New("job is not in processing state")

	// ErrJobNotCancellable is returned when cancelling a job that has
	// already been claimed or finished; only pending and retrying jobs
	// can be cancelled
	ErrJobNotCancellable = errors.New("job can only be cancelled while pending or retrying")

	// ErrJobNotDeadLetterable is returned when dead-lettering a job that is
	// neither failed nor holding a claim; pending, completed, and cancelled
	// jobs never enter the dead-letter queue
	ErrJobNotDeadLetterable = errors.New("job can only be dead-lettered while failed, processing, or retrying")

	// ErrHandlerNotFound is returned when no handler is registered for a job type
	ErrHandlerNotFound = errors.New("no handler registered for job type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no job handlers registered")
)
