package postgres_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/backoff"
	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/pg"
	"github.com/evocloud/jobqueue/pkg/queue"
	"github.com/evocloud/jobqueue/pkg/storage/postgres"
)

// setupStore connects to the database named by TEST_PG_CONN_URL, applies
// migrations, and wipes the queue tables. Tests are skipped when the
// variable is unset so the suite stays runnable without a database.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	connURL := os.Getenv("TEST_PG_CONN_URL")
	if connURL == "" {
		t.Skip("TEST_PG_CONN_URL not set, skipping postgres integration tests")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: connURL,
		MaxOpenConns:     5,
		MaxIdleConns:     2,
		RetryAttempts:    1,
		MigrationsTable:  "schema_migrations",
	}

	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, postgres.Migrations, "migrations", cfg, slog.Default()))

	_, err = pool.Exec(ctx, `TRUNCATE jobs, job_logs, dlq_entries, alert_thresholds`)
	require.NoError(t, err)

	return postgres.New(pool, postgres.WithBackoffStrategy(backoff.NewConstant(time.Millisecond)))
}

func insertJob(t *testing.T, store *postgres.Store, priority queue.Priority, maxRetries int8) *queue.Job {
	t.Helper()

	now := time.Now()
	job := &queue.Job{
		ID:           uuid.New(),
		JobType:      "scan",
		JobName:      "scan",
		Status:       queue.StatusPending,
		Priority:     priority,
		Payload:      json.RawMessage(`{}`),
		MaxRetries:   maxRetries,
		ScheduledFor: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func TestJobLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	job := insertJob(t, store, queue.PriorityHigh, 3)

	claimed, err := store.ClaimJob(ctx, uuid.New(), []string{"scan"})
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, queue.StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	require.NoError(t, store.CompleteJob(ctx, job.ID, json.RawMessage(`{"ok":true}`)))

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, stored.Status)
	assert.JSONEq(t, `{"ok":true}`, string(stored.Result))

	logs, err := store.ListJobLogs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, queue.LogMsgClaimed, logs[0].Message)
}

func TestClaimOrdering(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertJob(t, store, queue.PriorityLow, 3)
	high := insertJob(t, store, queue.PriorityHigh, 3)

	claimed, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
}

func TestClaimConcurrency(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	const jobCount = 10
	for range jobCount {
		insertJob(t, store, queue.PriorityMedium, 3)
	}

	var (
		mu      sync.Mutex
		claimed = make(map[uuid.UUID]int)
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerID := uuid.New()
			for {
				job, err := store.ClaimJob(ctx, workerID, nil)
				if err != nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimed, jobCount)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
	}
}

func TestRetryThenDeadLetter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	job := insertJob(t, store, queue.PriorityMedium, 2)

	// a pending job never reaches the dead-letter queue directly
	require.ErrorIs(t, store.MoveToDLQ(ctx, job.ID), queue.ErrJobNotDeadLetterable)

	// first failure reschedules
	_, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	updated, err := store.FailJob(ctx, job.ID, "first failure", "")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusRetrying, updated.Status)
	assert.Equal(t, int8(1), updated.RetryCount)

	logs, err := store.ListJobLogs(ctx, job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	failureLog := logs[len(logs)-1]
	assert.Equal(t, queue.LogMsgFailed, failureLog.Message)
	assert.Contains(t, failureLog.Metadata, "retry_delay")
	assert.Contains(t, failureLog.Metadata, "next_attempt_at")

	// second failure exhausts the budget
	waitForClaim(t, store, job.ID)
	updated, err = store.FailJob(ctx, job.ID, "second failure", "stack")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, updated.Status)

	require.NoError(t, store.MoveToDLQ(ctx, job.ID))
	require.NoError(t, store.MoveToDLQ(ctx, job.ID), "dead-lettering is idempotent")

	count, err := store.CountEntries(ctx, dlq.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err := store.ListEntries(ctx, dlq.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second failure", entries[0].ErrorMessage)
	assert.Equal(t, int8(2), entries[0].FailureCount)
}

// waitForClaim polls until the job becomes claimable again after backoff.
func waitForClaim(t *testing.T, store *postgres.Store, jobID uuid.UUID) {
	t.Helper()

	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.ClaimJob(ctx, uuid.New(), nil)
		if err == nil {
			require.Equal(t, jobID, job.ID)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %s never became claimable", jobID)
}

func TestCancelAndStaleClaims(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	pending := insertJob(t, store, queue.PriorityMedium, 3)
	require.NoError(t, store.CancelJob(ctx, pending.ID))
	require.ErrorIs(t, store.CancelJob(ctx, pending.ID), queue.ErrJobNotCancellable)

	processing := insertJob(t, store, queue.PriorityMedium, 3)
	_, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, store.CancelJob(ctx, processing.ID), queue.ErrJobNotCancellable)

	released, err := store.ReleaseStaleClaims(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	stored, err := store.GetJob(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, stored.Status)
}

func TestThresholdUpsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	tenantID := uuid.New()
	now := time.Now()
	newConfig := func(threshold float64) *alerts.ThresholdConfig {
		return &alerts.ThresholdConfig{
			ID:        uuid.New(),
			TenantID:  &tenantID,
			AlertType: alerts.AlertFailureRate,
			Threshold: threshold,
			Unit:      "percent",
			Enabled:   true,
			Channels:  []string{"log"},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	first := newConfig(10)
	require.NoError(t, store.SaveThreshold(ctx, first))
	require.NoError(t, store.SaveThreshold(ctx, newConfig(25)))

	configs, err := store.ListThresholds(ctx, &tenantID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, float64(25), configs[0].Threshold)
	assert.Equal(t, first.ID, configs[0].ID, "upsert keeps the original row")

	require.NoError(t, store.DeleteThreshold(ctx, first.ID))
	require.ErrorIs(t, store.DeleteThreshold(ctx, first.ID), alerts.ErrThresholdNotFound)

	configs, err = store.ListThresholds(ctx, &tenantID)
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestStatsQueries(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	completed := insertJob(t, store, queue.PriorityMedium, 3)
	_, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, store.CompleteJob(ctx, completed.ID, nil))

	failed := insertJob(t, store, queue.PriorityMedium, 1)
	_, err = store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	_, err = store.FailJob(ctx, failed.ID, "boom", "")
	require.NoError(t, err)
	require.NoError(t, store.MoveToDLQ(ctx, failed.ID))

	rate, err := store.FailureRate(ctx, nil, time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rate, 0.01)

	growth, err := store.DLQGrowth(ctx, nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), growth)

	insertJob(t, store, queue.PriorityMedium, 3)
	depth, err := store.QueueDepth(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}
