package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Janitor periodically releases stale claims so jobs held by crashed
// workers become claimable again instead of staying stuck in processing.
type Janitor struct {
	repo      AdminRepository
	interval  time.Duration
	olderThan time.Duration
	logger    *slog.Logger
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithSweepInterval sets how often the janitor scans for stale claims.
func WithSweepInterval(d time.Duration) JanitorOption {
	return func(j *Janitor) {
		if d > 0 {
			j.interval = d
		}
	}
}

// WithStaleClaimDuration sets how old a claim must be before it is
// considered abandoned. Keep it comfortably above the longest job timeout
// so a slow but healthy job is never released mid-flight.
func WithStaleClaimDuration(d time.Duration) JanitorOption {
	return func(j *Janitor) {
		if d > 0 {
			j.olderThan = d
		}
	}
}

// WithJanitorLogger sets the logger for the Janitor.
func WithJanitorLogger(logger *slog.Logger) JanitorOption {
	return func(j *Janitor) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJanitor creates a stale-claim janitor.
func NewJanitor(repo AdminRepository, opts ...JanitorOption) (*Janitor, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	j := &Janitor{
		repo:      repo,
		interval:  time.Minute,
		olderThan: 30 * time.Minute,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Sweep releases stale claims once and reports how many were released.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	released, err := j.repo.ReleaseStaleClaims(ctx, j.olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	if released > 0 {
		j.logger.Warn("released stale job claims",
			slog.Int64("released", released),
			slog.Duration("older_than", j.olderThan))
	}
	return released, nil
}

// Run sweeps on a ticker until the context is cancelled. Returns a function
// suitable for errgroup, matching Worker.Run.
func (j *Janitor) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := j.Sweep(ctx); err != nil {
					j.logger.Error("stale claim sweep failed",
						slog.String("error", err.Error()))
				}
			}
		}
	}
}
