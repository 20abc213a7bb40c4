package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	jobTypes          []string
	pollInterval      time.Duration
	defaultTimeout    time.Duration
	maxConcurrentJobs int
	logger            *slog.Logger
}

// WithJobTypes restricts which job types the worker claims. When unset the
// filter is derived from the registered handlers.
func WithJobTypes(jobTypes ...string) WorkerOption {
	return func(o *workerOptions) {
		o.jobTypes = jobTypes
	}
}

// WithPollInterval sets how often the worker checks for new jobs
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithDefaultTimeout sets the handler deadline for jobs that carry no
// timeout of their own
func WithDefaultTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithMaxConcurrentJobs sets the maximum number of concurrent jobs
func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
