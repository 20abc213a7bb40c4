package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/pg"
)

const dlqColumns = `id, job_id, job_type, job_name, payload, tenant_id,
	error_message, error_stack, failure_count, max_retries, priority,
	status, notes, reprocess_attempts, moved_to_dlq_at, created_at, updated_at`

// GetEntry retrieves a dead-letter entry by id.
func (s *Store) GetEntry(ctx context.Context, entryID uuid.UUID) (*dlq.Entry, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM dlq_entries WHERE id = $1`, dlqColumns), entryID)
	entry, err := scanDLQEntry(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, dlq.ErrEntryNotFound
		}
		return nil, fmt.Errorf("postgres: get dlq entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns dead-letter entries matching the filter, newest first.
func (s *Store) ListEntries(ctx context.Context, filter dlq.Filter) ([]*dlq.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM dlq_entries
		WHERE ($1::uuid IS NULL OR tenant_id = $1)
		  AND ($2::text = '' OR status = $2)
		ORDER BY moved_to_dlq_at DESC`, dlqColumns)
	args := []any{filter.TenantID, string(filter.Status)}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list dlq entries: %w", err)
	}
	defer rows.Close()

	var out []*dlq.Entry
	for rows.Next() {
		entry, err := scanDLQEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan dlq entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate dlq entries: %w", err)
	}
	return out, nil
}

// MarkReprocessing flips an open entry to reprocessing and bumps its counter.
func (s *Store) MarkReprocessing(ctx context.Context, entryID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dlq_entries
		SET status = 'reprocessing', reprocess_attempts = reprocess_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('resolved', 'abandoned')`,
		entryID,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark dlq entry reprocessing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entryStateError(ctx, s.pool, entryID)
	}
	return nil
}

// CloseEntry stamps an open entry resolved or abandoned with operator notes.
func (s *Store) CloseEntry(ctx context.Context, entryID uuid.UUID, status dlq.Status, notes string) error {
	if !status.Closed() {
		return dlq.ErrInvalidCloseStatus
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE dlq_entries
		SET status = $2, notes = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('resolved', 'abandoned')`,
		entryID, status, notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: close dlq entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entryStateError(ctx, s.pool, entryID)
	}
	return nil
}

// CountEntries returns the number of entries matching the filter.
func (s *Store) CountEntries(ctx context.Context, filter dlq.Filter) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dlq_entries
		WHERE ($1::uuid IS NULL OR tenant_id = $1)
		  AND ($2::text = '' OR status = $2)`,
		filter.TenantID, string(filter.Status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count dlq entries: %w", err)
	}
	return n, nil
}

// entryStateError distinguishes missing entries from already-closed ones
// after a guarded UPDATE matched no rows.
func entryStateError(ctx context.Context, q querier, entryID uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dlq_entries WHERE id = $1)`, entryID).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check dlq entry existence: %w", err)
	}
	if !exists {
		return dlq.ErrEntryNotFound
	}
	return dlq.ErrEntryClosed
}

func scanDLQEntry(row pgx.Row) (*dlq.Entry, error) {
	var e dlq.Entry
	err := row.Scan(
		&e.ID, &e.JobID, &e.JobType, &e.JobName, &e.Payload, &e.TenantID,
		&e.ErrorMessage, &e.ErrorStack, &e.FailureCount, &e.MaxRetries,
		&e.Priority, &e.Status, &e.Notes, &e.ReprocessAttempts,
		&e.MovedToDLQAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
