package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Worker processes jobs from the queue
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	jobTypes []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pollInterval   time.Duration
	defaultTimeout time.Duration
	logger         *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new job worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	// Default options
	options := &workerOptions{
		pollInterval:      5 * time.Second,
		defaultTimeout:    5 * time.Minute,
		maxConcurrentJobs: 1,
		logger:            slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:           repo,
		handlers:       make(map[string]Handler),
		jobTypes:       options.jobTypes,
		workerID:       uuid.New(),
		sem:            make(chan struct{}, options.maxConcurrentJobs),
		pollInterval:   options.pollInterval,
		defaultTimeout: options.defaultTimeout,
		logger:         options.logger,
	}, nil
}

// RegisterHandler registers a single job handler
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.JobType()] = handler
	return nil
}

// RegisterHandlers registers multiple job handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing jobs in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	// Reset stopping flag
	w.stopping.Store(false)

	// Start the main processing loop
	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("job_types", w.claimTypes()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	// Use stopMu to synchronize with run() goroutine
	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	// Cancel context to stop polling
	cancel()

	// Wait for all active jobs to complete
	w.logger.Info("worker stopping, waiting for active jobs to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// claimTypes resolves the job-type filter passed to ClaimJob. An explicit
// WithJobTypes option wins; otherwise the filter is derived from the
// registered handlers so the worker never claims work it cannot execute.
func (w *Worker) claimTypes() []string {
	if len(w.jobTypes) > 0 {
		return w.jobTypes
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	types := make([]string, 0, len(w.handlers))
	for t := range w.handlers {
		types = append(types, t)
	}
	return types
}

// run is the main polling loop. Idle polls back off to the tick interval
// so workers never hot-spin against an empty queue.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			// Try to acquire a slot
			select {
			case w.sem <- struct{}{}:
				// Use stopMu to ensure we don't add to WaitGroup after Stop() starts
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem // Release slot
					return
				}

				// Safe to add to wait group while holding stopMu
				w.wg.Add(1)
				w.stopMu.Unlock()

				// Got a slot, process job in background
				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }() // Release slot

					if err := w.claimAndProcess(); err != nil {
						if !errors.Is(err, ErrHandlerNotFound) {
							w.logger.Error("failed to process job",
								slog.String("worker_id", w.workerID.String()),
								slog.String("error", err.Error()))
						}
					}
				}()
			default:
				// All slots busy, skip this tick
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// claimAndProcess claims the next eligible job and processes it
func (w *Worker) claimAndProcess() error {
	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.claimTypes())
	if err != nil {
		// ErrNoJobToClaim is the idle signal, not an error
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	if job == nil {
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
		slog.String("job_name", job.JobName))

	return w.processJob(job)
}

// processJob executes a job with its handler
func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	// Stop cancels w.ctx before waiting for in-flight jobs, so outcome
	// reporting must not inherit that cancellation or the job would be
	// stranded in processing and re-executed after a stale-claim sweep
	reportCtx := context.WithoutCancel(w.ctx)

	// Adapter panics are recorded like any other failure, never
	// propagated back to the claim loop
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.String("job_type", job.JobType),
				slog.Any("panic", r))
			duration := time.Since(start)
			_ = w.handleJobFailure(reportCtx, job, retErr, stack, duration)
		}
	}()

	// Find handler
	w.mu.RLock()
	handler, ok := w.handlers[job.JobType]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(reportCtx, job)
	}

	// Derive the handler deadline from the job itself, detached from the
	// worker lifecycle so graceful shutdown lets in-flight jobs finish
	ctx, cancel := context.WithTimeout(context.Background(), job.Timeout(w.defaultTimeout))
	defer cancel()

	ctx = WithProgressReporter(ctx, &jobProgressReporter{repo: w.repo, jobID: job.ID})

	// Execute handler
	result, err := handler.Handle(ctx, job)
	duration := time.Since(start)

	if err != nil {
		return w.handleJobFailure(reportCtx, job, err, "", duration)
	}

	return w.handleJobSuccess(reportCtx, job, result, duration)
}

// handleMissingHandler processes jobs that have no registered handler
// Immediately moves jobs to DLQ since retries won't help without a handler
func (w *Worker) handleMissingHandler(ctx context.Context, job *Job) error {
	w.logger.Error("no handler registered for job type",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType))

	// Mark as failed to record the specific error
	errorMsg := "no handler registered for job type: " + job.JobType
	if _, err := w.repo.FailJob(ctx, job.ID, errorMsg, ""); err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", job.ID, err)
	}

	// Move directly to DLQ - no point in retrying without a handler
	if err := w.repo.MoveToDLQ(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to move job %s to DLQ: %w", job.ID, err)
	}

	return ErrHandlerNotFound
}

// handleJobFailure routes a failed execution through the retry policy.
// FailJob increments the retry count and reschedules or marks the job
// failed; exhausted jobs are handed to the dead-letter queue.
func (w *Worker) handleJobFailure(ctx context.Context, job *Job, execErr error, stack string, duration time.Duration) error {
	w.logger.Error("job failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
		slog.Int("retry_count", int(job.RetryCount)),
		slog.Int("max_retries", int(job.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	updated, err := w.repo.FailJob(ctx, job.ID, execErr.Error(), stack)
	if err != nil {
		return fmt.Errorf("failed to update job %s status to failed: %w", job.ID, err)
	}

	// Retry budget exhausted: escalate to the dead-letter queue
	if updated.Status == StatusFailed {
		if err := w.repo.MoveToDLQ(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to move job %s to DLQ after max retries: %w", job.ID, err)
		}

		w.logger.Warn("job moved to dead letter queue",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("job_type", job.JobType))

		return nil
	}

	return nil
}

// handleJobSuccess processes successful job completion
func (w *Worker) handleJobSuccess(ctx context.Context, job *Job, result []byte, duration time.Duration) error {
	if err := w.repo.CompleteJob(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.logger.Info("job completed successfully",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
		slog.String("job_name", job.JobName),
		slog.Duration("duration", duration))

	return nil
}

// ReportProgress appends a progress entry to a job's log trail on behalf
// of an executing handler.
func (w *Worker) ReportProgress(ctx context.Context, jobID uuid.UUID, level LogLevel, message string, metadata map[string]any) error {
	return w.repo.AppendJobLog(ctx, NewJobLogEntry(jobID, level, message, metadata))
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
