package queue

import (
	"context"

	"github.com/google/uuid"
)

// ProgressReporter lets a handler append progress entries to the log trail
// of the job it is executing.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, level LogLevel, message string, metadata map[string]any) error
}

// progressKey is a private type to prevent collisions with other context keys.
type progressKey struct{}

// WithProgressReporter attaches a progress reporter to the context. The
// worker loop does this before invoking a handler.
func WithProgressReporter(ctx context.Context, r ProgressReporter) context.Context {
	return context.WithValue(ctx, progressKey{}, r)
}

// ProgressFromContext retrieves the progress reporter for the current job.
// Returns a no-op reporter when none is attached so handlers can report
// unconditionally.
func ProgressFromContext(ctx context.Context) ProgressReporter {
	if r, ok := ctx.Value(progressKey{}).(ProgressReporter); ok {
		return r
	}
	return noopReporter{}
}

type noopReporter struct{}

func (noopReporter) ReportProgress(context.Context, LogLevel, string, map[string]any) error {
	return nil
}

// jobProgressReporter appends progress entries for a single claimed job.
type jobProgressReporter struct {
	repo  WorkerRepository
	jobID uuid.UUID
}

func (r *jobProgressReporter) ReportProgress(ctx context.Context, level LogLevel, message string, metadata map[string]any) error {
	return r.repo.AppendJobLog(ctx, NewJobLogEntry(r.jobID, level, message, metadata))
}
