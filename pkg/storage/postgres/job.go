package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evocloud/jobqueue/pkg/pg"
	"github.com/evocloud/jobqueue/pkg/queue"
)

const jobColumns = `id, job_type, job_name, status, priority, tenant_id, payload, result,
	error_message, error_stack, retry_count, max_retries, timeout_seconds,
	scheduled_for, locked_by, started_at, completed_at, created_at, updated_at`

// CreateJob inserts a new job row.
func (s *Store) CreateJob(ctx context.Context, job *queue.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (
			id, job_type, job_name, status, priority, tenant_id, payload,
			retry_count, max_retries, timeout_seconds, scheduled_for,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.JobType, job.JobName, job.Status, job.Priority, job.TenantID,
		job.Payload, job.RetryCount, job.MaxRetries, job.TimeoutSeconds,
		job.ScheduledFor, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create job: %w", err)
	}
	return nil
}

// ClaimJob atomically claims the next eligible job and records the claim in
// the job's log within the same transaction. Eligible means a claimable
// status with scheduled_for in the past; candidates are ordered by priority
// descending, then oldest scheduled_for. SKIP LOCKED keeps concurrent
// claimers from blocking on or double-claiming the same row.
func (s *Store) ClaimJob(ctx context.Context, workerID uuid.UUID, jobTypes []string) (*queue.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		WITH claimed AS (
			SELECT id FROM jobs
			WHERE status IN ('pending', 'retrying')
			  AND scheduled_for <= NOW()
			  AND ($2::text[] IS NULL OR job_type = ANY($2))
			ORDER BY priority DESC, scheduled_for ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE jobs
		SET status = 'processing', locked_by = $1, started_at = NOW(), updated_at = NOW()
		FROM claimed
		WHERE jobs.id = claimed.id
		RETURNING %s`, jobColumns),
		workerID, typesParam(jobTypes),
	)

	job, err := scanJob(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, queue.ErrNoJobToClaim
		}
		return nil, fmt.Errorf("postgres: claim job: %w", err)
	}

	if err := insertJobLog(ctx, tx, queue.NewJobLogEntry(job.ID, queue.LogLevelInfo, queue.LogMsgClaimed, map[string]any{
		"worker_id": workerID,
	})); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit claim tx: %w", err)
	}
	return job, nil
}

// CompleteJob transitions a processing job to completed with its result.
func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, result json.RawMessage) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', result = $2, completed_at = NOW(), locked_by = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`,
		jobID, result,
	)
	if err != nil {
		return fmt.Errorf("postgres: complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobStateError(ctx, s.pool, jobID)
	}
	return nil
}

// FailJob increments the retry count and either reschedules the job with
// backoff or marks it failed once the retry budget is spent. The row is
// locked for the duration so the delay is computed against a stable count.
func (s *Store) FailJob(ctx context.Context, jobID uuid.UUID, errMsg, errStack string) (*queue.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin fail tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status queue.JobStatus
	var retryCount, maxRetries int8
	err = tx.QueryRow(ctx,
		`SELECT status, retry_count, max_retries FROM jobs WHERE id = $1 FOR UPDATE`,
		jobID,
	).Scan(&status, &retryCount, &maxRetries)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: lock job for failure: %w", err)
	}
	if status != queue.StatusProcessing {
		return nil, queue.ErrJobNotProcessing
	}

	retryCount++
	meta := map[string]any{
		"error":       errMsg,
		"retry_count": retryCount,
		"max_retries": maxRetries,
	}

	var row pgx.Row
	if retryCount >= maxRetries {
		row = tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE jobs
			SET status = 'failed', retry_count = $2, error_message = $3,
			    error_stack = NULLIF($4, ''), locked_by = NULL, updated_at = NOW()
			WHERE id = $1
			RETURNING %s`, jobColumns),
			jobID, retryCount, errMsg, errStack,
		)
	} else {
		delay := s.strategy.Delay(int(retryCount))
		meta["retry_delay"] = delay.String()
		row = tx.QueryRow(ctx, fmt.Sprintf(`
			UPDATE jobs
			SET status = 'retrying', retry_count = $2, error_message = $3,
			    error_stack = NULLIF($4, ''), scheduled_for = NOW() + $5,
			    locked_by = NULL, updated_at = NOW()
			WHERE id = $1
			RETURNING %s`, jobColumns),
			jobID, retryCount, errMsg, errStack, delay,
		)
	}

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("postgres: fail job: %w", err)
	}
	if job.Status == queue.StatusRetrying {
		meta["next_attempt_at"] = job.ScheduledFor
	}

	if err := insertJobLog(ctx, tx, queue.NewJobLogEntry(jobID, queue.LogLevelError, queue.LogMsgFailed, meta)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit fail tx: %w", err)
	}
	return job, nil
}

// MoveToDLQ snapshots a failed job into dlq_entries and stamps the job
// moved_to_dlq. The unique index on dlq_entries.job_id plus the status guard
// make repeated calls harmless.
func (s *Store) MoveToDLQ(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin dlq tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM jobs WHERE id = $1 FOR UPDATE`, jobColumns), jobID)
	job, err := scanJob(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return queue.ErrJobNotFound
		}
		return fmt.Errorf("postgres: lock job for dlq: %w", err)
	}
	if job.Status == queue.StatusMovedToDLQ {
		return nil
	}
	switch job.Status {
	case queue.StatusFailed, queue.StatusProcessing, queue.StatusRetrying:
	default:
		return queue.ErrJobNotDeadLetterable
	}

	entryID := uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO dlq_entries (
			id, job_id, job_type, job_name, payload, tenant_id,
			error_message, error_stack, failure_count, max_retries, priority,
			status, moved_to_dlq_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, ''), $8, $9, $10, $11, 'failed', NOW(), NOW(), NOW())
		ON CONFLICT (job_id) DO NOTHING`,
		entryID, job.ID, job.JobType, job.JobName, job.Payload, job.TenantID,
		job.ErrorMessage, job.ErrorStack, job.RetryCount, job.MaxRetries, job.Priority,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert dlq entry: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs SET status = 'moved_to_dlq', locked_by = NULL, updated_at = NOW()
		WHERE id = $1`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark job dead-lettered: %w", err)
	}

	if tag.RowsAffected() > 0 {
		if err := insertJobLog(ctx, tx, queue.NewJobLogEntry(jobID, queue.LogLevelError, queue.LogMsgMovedToDLQ, map[string]any{
			"dlq_entry_id":  entryID,
			"failure_count": job.RetryCount,
		})); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit dlq tx: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*queue.Job, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM jobs WHERE id = $1`, jobColumns), jobID)
	job, err := scanJob(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("postgres: get job: %w", err)
	}
	return job, nil
}

// CancelJob flips a pending or retrying job to cancelled.
func (s *Store) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE jobs
		SET status = 'cancelled', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'retrying')`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("postgres: cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check job existence: %w", err)
		}
		if !exists {
			return queue.ErrJobNotFound
		}
		return queue.ErrJobNotCancellable
	}

	if err := insertJobLog(ctx, tx, queue.NewJobLogEntry(jobID, queue.LogLevelInfo, queue.LogMsgCancelled, nil)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit cancel tx: %w", err)
	}
	return nil
}

// ReleaseStaleClaims returns processing jobs whose claim is older than the
// threshold back to pending. Meant to run periodically so jobs held by
// crashed workers become claimable again.
func (s *Store) ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', locked_by = NULL, started_at = NULL, updated_at = NOW()
		WHERE status = 'processing' AND started_at < NOW() - $1`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: release stale claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// jobStateError distinguishes missing jobs from state conflicts after an
// UPDATE matched no rows.
func jobStateError(ctx context.Context, q querier, jobID uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check job existence: %w", err)
	}
	if !exists {
		return queue.ErrJobNotFound
	}
	return queue.ErrJobNotProcessing
}

// typesParam turns an empty filter into SQL NULL so the claim query can skip
// the type check entirely.
func typesParam(jobTypes []string) any {
	if len(jobTypes) == 0 {
		return nil
	}
	return jobTypes
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanJob(row pgx.Row) (*queue.Job, error) {
	var job queue.Job
	err := row.Scan(
		&job.ID, &job.JobType, &job.JobName, &job.Status, &job.Priority,
		&job.TenantID, &job.Payload, &job.Result, &job.ErrorMessage,
		&job.ErrorStack, &job.RetryCount, &job.MaxRetries, &job.TimeoutSeconds,
		&job.ScheduledFor, &job.LockedBy, &job.StartedAt, &job.CompletedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
