package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evocloud/jobqueue/pkg/queue"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so job transitions
// can write their log rows inside their own transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AppendJobLog appends an immutable log entry to a job's trail.
func (s *Store) AppendJobLog(ctx context.Context, entry *queue.JobLogEntry) error {
	return insertJobLog(ctx, s.pool, entry)
}

// ListJobLogs returns a job's log trail in write order.
func (s *Store) ListJobLogs(ctx context.Context, jobID uuid.UUID) ([]*queue.JobLogEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: check job existence: %w", err)
	}
	if !exists {
		return nil, queue.ErrJobNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, level, message, metadata, created_at
		FROM job_logs
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list job logs: %w", err)
	}
	defer rows.Close()

	var out []*queue.JobLogEntry
	for rows.Next() {
		var e queue.JobLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan job log: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate job logs: %w", err)
	}
	return out, nil
}

func insertJobLog(ctx context.Context, ex execer, entry *queue.JobLogEntry) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO job_logs (id, job_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.JobID, entry.Level, entry.Message, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append job log: %w", err)
	}
	return nil
}
