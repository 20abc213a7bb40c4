package queue

import (
	"time"

	"github.com/google/uuid"
)

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultPriority   Priority
	defaultMaxRetries int8
}

// WithDefaultPriority sets the default priority for enqueued jobs
func WithDefaultPriority(priority Priority) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if priority.Valid() {
			o.defaultPriority = priority
		}
	}
}

// WithDefaultMaxRetries sets the default retry budget for enqueued jobs
func WithDefaultMaxRetries(maxRetries int8) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if maxRetries >= 0 {
			o.defaultMaxRetries = maxRetries
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	priority       Priority
	tenantID       *uuid.UUID
	maxRetries     int8
	timeoutSeconds int
	delay          time.Duration
	scheduledFor   *time.Time
}

// WithPriority sets the priority for the job
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithTenant scopes the job to a tenant. Jobs without a tenant are
// system jobs.
func WithTenant(tenantID uuid.UUID) EnqueueOption {
	return func(o *enqueueOptions) {
		o.tenantID = &tenantID
	}
}

// WithMaxRetries sets the maximum number of retries (0-10)
// Capped at 10 to prevent infinite retry loops on persistent failures
func WithMaxRetries(maxRetries int8) EnqueueOption {
	return func(o *enqueueOptions) {
		if maxRetries >= 0 && maxRetries <= 10 {
			o.maxRetries = maxRetries
		}
	}
}

// WithTimeout sets the execution deadline the worker exposes to the handler
func WithTimeout(seconds int) EnqueueOption {
	return func(o *enqueueOptions) {
		if seconds > 0 {
			o.timeoutSeconds = seconds
		}
	}
}

// WithDelay sets a delay before the job can be claimed
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithScheduledFor sets the earliest claim time for the job
func WithScheduledFor(scheduledFor time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.scheduledFor = &scheduledFor
	}
}
