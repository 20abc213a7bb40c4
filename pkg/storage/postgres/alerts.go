package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/queue"
)

const thresholdColumns = `id, tenant_id, alert_type, threshold, unit, enabled, channels, created_at, updated_at`

// SaveThreshold upserts a threshold config. One config exists per tenant and
// alert type pair; the unique index treats a NULL tenant_id as the global
// scope so the ON CONFLICT target must use the same COALESCE expression.
func (s *Store) SaveThreshold(ctx context.Context, cfg *alerts.ThresholdConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_thresholds (id, tenant_id, alert_type, threshold, unit, enabled, channels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (COALESCE(tenant_id, '00000000-0000-0000-0000-000000000000'::uuid), alert_type)
		DO UPDATE SET threshold = EXCLUDED.threshold, unit = EXCLUDED.unit,
		              enabled = EXCLUDED.enabled, channels = EXCLUDED.channels,
		              updated_at = EXCLUDED.updated_at`,
		cfg.ID, cfg.TenantID, cfg.AlertType, cfg.Threshold, cfg.Unit,
		cfg.Enabled, cfg.Channels, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save alert threshold: %w", err)
	}
	return nil
}

// ListThresholds returns configs for a tenant; a nil tenant lists everything.
func (s *Store) ListThresholds(ctx context.Context, tenantID *uuid.UUID) ([]*alerts.ThresholdConfig, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM alert_thresholds
		WHERE $1::uuid IS NULL OR tenant_id = $1
		ORDER BY created_at ASC`, thresholdColumns),
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alert thresholds: %w", err)
	}
	defer rows.Close()

	return collectThresholds(rows)
}

// DeleteThreshold removes a threshold config by id.
func (s *Store) DeleteThreshold(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_thresholds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete alert threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return alerts.ErrThresholdNotFound
	}
	return nil
}

// ListEnabledThresholds returns every enabled config across tenants.
func (s *Store) ListEnabledThresholds(ctx context.Context) ([]*alerts.ThresholdConfig, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM alert_thresholds
		WHERE enabled
		ORDER BY created_at ASC`, thresholdColumns),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enabled alert thresholds: %w", err)
	}
	defer rows.Close()

	return collectThresholds(rows)
}

// FailureRate returns the percentage of job executions that failed over the
// trailing window. Failed executions are counted from failure log entries
// (each retry attempt counts once); successes from jobs completed in the
// window.
func (s *Store) FailureRate(ctx context.Context, tenantID *uuid.UUID, window time.Duration) (float64, error) {
	var failures, successes int64
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*)
			 FROM job_logs l
			 JOIN jobs j ON j.id = l.job_id
			 WHERE l.message = $1
			   AND l.created_at > NOW() - $3::interval
			   AND ($2::uuid IS NULL OR j.tenant_id = $2)),
			(SELECT COUNT(*)
			 FROM jobs
			 WHERE status = 'completed'
			   AND completed_at > NOW() - $3::interval
			   AND ($2::uuid IS NULL OR tenant_id = $2))`,
		queue.LogMsgFailed, tenantID, window,
	).Scan(&failures, &successes)
	if err != nil {
		return 0, fmt.Errorf("postgres: failure rate: %w", err)
	}

	total := failures + successes
	if total == 0 {
		return 0, nil
	}
	return float64(failures) / float64(total) * 100, nil
}

// DLQGrowth returns how many jobs were dead-lettered over the window.
func (s *Store) DLQGrowth(ctx context.Context, tenantID *uuid.UUID, window time.Duration) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dlq_entries
		WHERE moved_to_dlq_at > NOW() - $2::interval
		  AND ($1::uuid IS NULL OR tenant_id = $1)`,
		tenantID, window,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: dlq growth: %w", err)
	}
	return n, nil
}

// QueueDepth returns the current backlog of claimable jobs.
func (s *Store) QueueDepth(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE status IN ('pending', 'retrying')
		  AND ($1::uuid IS NULL OR tenant_id = $1)`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: queue depth: %w", err)
	}
	return n, nil
}

func collectThresholds(rows pgx.Rows) ([]*alerts.ThresholdConfig, error) {
	var out []*alerts.ThresholdConfig
	for rows.Next() {
		var cfg alerts.ThresholdConfig
		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.AlertType, &cfg.Threshold, &cfg.Unit,
			&cfg.Enabled, &cfg.Channels, &cfg.CreatedAt, &cfg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert threshold: %w", err)
		}
		out = append(out, &cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate alert thresholds: %w", err)
	}
	return out, nil
}
