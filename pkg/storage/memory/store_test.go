package memory_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/alerts"
	"github.com/evocloud/jobqueue/pkg/backoff"
	"github.com/evocloud/jobqueue/pkg/dlq"
	"github.com/evocloud/jobqueue/pkg/queue"
	"github.com/evocloud/jobqueue/pkg/storage/memory"
)

func newJob(jobType string, priority queue.Priority, maxRetries int8) *queue.Job {
	now := time.Now()
	return &queue.Job{
		ID:           uuid.New(),
		JobType:      jobType,
		JobName:      jobType,
		Status:       queue.StatusPending,
		Priority:     priority,
		Payload:      json.RawMessage(`{}`),
		MaxRetries:   maxRetries,
		ScheduledFor: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestClaimJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns ErrNoJobToClaim when empty", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.ErrorIs(t, err, queue.ErrNoJobToClaim)
	})

	t.Run("claims highest priority first", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		low := newJob("send_report", queue.PriorityLow, 3)
		high := newJob("send_report", queue.PriorityHigh, 3)
		require.NoError(t, store.CreateJob(ctx, low))
		require.NoError(t, store.CreateJob(ctx, high))

		claimed, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		assert.Equal(t, high.ID, claimed.ID)
		assert.Equal(t, queue.StatusProcessing, claimed.Status)
		require.NotNil(t, claimed.StartedAt)
	})

	t.Run("breaks priority ties by scheduled_for", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		later := newJob("scan", queue.PriorityMedium, 3)
		earlier := newJob("scan", queue.PriorityMedium, 3)
		earlier.ScheduledFor = later.ScheduledFor.Add(-time.Minute)
		require.NoError(t, store.CreateJob(ctx, later))
		require.NoError(t, store.CreateJob(ctx, earlier))

		claimed, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		assert.Equal(t, earlier.ID, claimed.ID)
	})

	t.Run("skips future scheduled jobs", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		future := newJob("scan", queue.PriorityMax, 3)
		future.ScheduledFor = time.Now().Add(time.Hour)
		require.NoError(t, store.CreateJob(ctx, future))

		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.ErrorIs(t, err, queue.ErrNoJobToClaim)
	})

	t.Run("filters by job type", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		other := newJob("export_csv", queue.PriorityMax, 3)
		wanted := newJob("scan", queue.PriorityLow, 3)
		require.NoError(t, store.CreateJob(ctx, other))
		require.NoError(t, store.CreateJob(ctx, wanted))

		claimed, err := store.ClaimJob(ctx, uuid.New(), []string{"scan"})
		require.NoError(t, err)
		assert.Equal(t, wanted.ID, claimed.ID)
	})

	t.Run("writes a claim log entry", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, job))

		workerID := uuid.New()
		_, err := store.ClaimJob(ctx, workerID, nil)
		require.NoError(t, err)

		logs, err := store.ListJobLogs(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, queue.LogMsgClaimed, logs[0].Message)
	})

	t.Run("each job claimed at most once under contention", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		const jobCount = 20
		for range jobCount {
			require.NoError(t, store.CreateJob(ctx, newJob("scan", queue.PriorityMedium, 3)))
		}

		var (
			mu      sync.Mutex
			claimed = make(map[uuid.UUID]int)
			wg      sync.WaitGroup
		)
		for range 50 {
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
	})
}

func TestFailJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	claimJob := func(t *testing.T, store *memory.Store, job *queue.Job) {
		t.Helper()
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
	}

	t.Run("reschedules with backoff while retries remain", func(t *testing.T) {
		t.Parallel()

		store := memory.New(memory.WithBackoffStrategy(backoff.NewConstant(time.Minute)))
		job := newJob("scan", queue.PriorityMedium, 3)
		claimJob(t, store, job)

		updated, err := store.FailJob(ctx, job.ID, "timeout", "")
		require.NoError(t, err)
		assert.Equal(t, queue.StatusRetrying, updated.Status)
		assert.Equal(t, int8(1), updated.RetryCount)
		assert.Nil(t, updated.LockedBy)
		assert.WithinDuration(t, time.Now().Add(time.Minute), updated.ScheduledFor, 2*time.Second)
	})

	t.Run("marks failed once retries exhausted", func(t *testing.T) {
		t.Parallel()

		store := memory.New(memory.WithBackoffStrategy(backoff.NewConstant(time.Millisecond)))
		job := newJob("scan", queue.PriorityMedium, 2)
		claimJob(t, store, job)

		updated, err := store.FailJob(ctx, job.ID, "first failure", "")
		require.NoError(t, err)
		require.Equal(t, queue.StatusRetrying, updated.Status)

		// wait out the backoff so the second claim can see the job
		time.Sleep(5 * time.Millisecond)
		_, err = store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)

		updated, err = store.FailJob(ctx, job.ID, "second failure", "stack trace")
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailed, updated.Status)
		assert.Equal(t, int8(2), updated.RetryCount)
		require.NotNil(t, updated.ErrorMessage)
		assert.Equal(t, "second failure", *updated.ErrorMessage)
		require.NotNil(t, updated.ErrorStack)
	})

	t.Run("rejects jobs that are not processing", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, job))

		_, err := store.FailJob(ctx, job.ID, "nope", "")
		require.ErrorIs(t, err, queue.ErrJobNotProcessing)
	})
}

func TestCompleteJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	job := newJob("scan", queue.PriorityMedium, 3)
	require.NoError(t, store.CreateJob(ctx, job))
	_, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)

	result := json.RawMessage(`{"findings":7}`)
	require.NoError(t, store.CompleteJob(ctx, job.ID, result))

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, stored.Status)
	assert.JSONEq(t, `{"findings":7}`, string(stored.Result))
	require.NotNil(t, stored.CompletedAt)
	assert.Nil(t, stored.LockedBy)
}

func TestMoveToDLQ(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	exhaustJob := func(t *testing.T, store *memory.Store, job *queue.Job) {
		t.Helper()
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		updated, err := store.FailJob(ctx, job.ID, "boom", "stack")
		require.NoError(t, err)
		require.Equal(t, queue.StatusFailed, updated.Status)
	}

	t.Run("snapshots the failed job", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		tenantID := uuid.New()
		job := newJob("scan", queue.PriorityHigh, 1)
		job.TenantID = &tenantID
		exhaustJob(t, store, job)

		require.NoError(t, store.MoveToDLQ(ctx, job.ID))

		stored, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusMovedToDLQ, stored.Status)

		entries, err := store.ListEntries(ctx, dlq.Filter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		entry := entries[0]
		assert.Equal(t, job.ID, entry.JobID)
		assert.Equal(t, "scan", entry.JobType)
		assert.Equal(t, "boom", entry.ErrorMessage)
		assert.Equal(t, int8(1), entry.FailureCount)
		assert.Equal(t, dlq.StatusFailed, entry.Status)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 1)
		exhaustJob(t, store, job)

		require.NoError(t, store.MoveToDLQ(ctx, job.ID))
		require.NoError(t, store.MoveToDLQ(ctx, job.ID))

		count, err := store.CountEntries(ctx, dlq.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects jobs outside the failure path", func(t *testing.T) {
		t.Parallel()

		store := memory.New()

		completed := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, completed))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		require.NoError(t, store.CompleteJob(ctx, completed.ID, nil))
		require.ErrorIs(t, store.MoveToDLQ(ctx, completed.ID), queue.ErrJobNotDeadLetterable)

		pending := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, pending))
		require.ErrorIs(t, store.MoveToDLQ(ctx, pending.ID), queue.ErrJobNotDeadLetterable)

		count, err := store.CountEntries(ctx, dlq.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestCancelJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("cancels pending job", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, job))

		require.NoError(t, store.CancelJob(ctx, job.ID))

		stored, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusCancelled, stored.Status)

		// cancelled jobs never get claimed
		_, err = store.ClaimJob(ctx, uuid.New(), nil)
		require.ErrorIs(t, err, queue.ErrNoJobToClaim)
	})

	t.Run("rejects processing job", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)

		require.ErrorIs(t, store.CancelJob(ctx, job.ID), queue.ErrJobNotCancellable)
	})
}

func TestReleaseStaleClaims(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	job := newJob("scan", queue.PriorityMedium, 3)
	require.NoError(t, store.CreateJob(ctx, job))
	_, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)

	// claim is fresh, nothing released
	released, err := store.ReleaseStaleClaims(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), released)

	// zero threshold makes the fresh claim stale
	released, err = store.ReleaseStaleClaims(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, stored.Status)
	assert.Nil(t, stored.LockedBy)
	assert.Nil(t, stored.StartedAt)
}

func TestDLQEntryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	deadLetter := func(t *testing.T, store *memory.Store) *dlq.Entry {
		t.Helper()
		job := newJob("scan", queue.PriorityMedium, 1)
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		_, err = store.FailJob(ctx, job.ID, "boom", "")
		require.NoError(t, err)
		require.NoError(t, store.MoveToDLQ(ctx, job.ID))

		entries, err := store.ListEntries(ctx, dlq.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		return entries[0]
	}

	t.Run("mark reprocessing bumps the attempt counter", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		entry := deadLetter(t, store)

		require.NoError(t, store.MarkReprocessing(ctx, entry.ID))

		stored, err := store.GetEntry(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, dlq.StatusReprocessing, stored.Status)
		assert.Equal(t, 1, stored.ReprocessAttempts)
	})

	t.Run("close entry is final", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		entry := deadLetter(t, store)

		require.NoError(t, store.CloseEntry(ctx, entry.ID, dlq.StatusResolved, "fixed upstream"))

		stored, err := store.GetEntry(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, dlq.StatusResolved, stored.Status)
		require.NotNil(t, stored.Notes)
		assert.Equal(t, "fixed upstream", *stored.Notes)

		require.ErrorIs(t, store.MarkReprocessing(ctx, entry.ID), dlq.ErrEntryClosed)
		require.ErrorIs(t, store.CloseEntry(ctx, entry.ID, dlq.StatusAbandoned, ""), dlq.ErrEntryClosed)
	})

	t.Run("rejects non-terminal close status", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		entry := deadLetter(t, store)

		err := store.CloseEntry(ctx, entry.ID, dlq.StatusReprocessing, "")
		require.ErrorIs(t, err, dlq.ErrInvalidCloseStatus)
	})
}

func TestThresholds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("upserts by tenant and alert type", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		tenantID := uuid.New()

		first := &alerts.ThresholdConfig{
			ID:        uuid.New(),
			TenantID:  &tenantID,
			AlertType: alerts.AlertFailureRate,
			Threshold: 10,
			Enabled:   true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.SaveThreshold(ctx, first))

		second := &alerts.ThresholdConfig{
			ID:        uuid.New(),
			TenantID:  &tenantID,
			AlertType: alerts.AlertFailureRate,
			Threshold: 25,
			Enabled:   true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.SaveThreshold(ctx, second))

		configs, err := store.ListThresholds(ctx, &tenantID)
		require.NoError(t, err)
		require.Len(t, configs, 1)
		assert.Equal(t, float64(25), configs[0].Threshold)
	})

	t.Run("lists only enabled thresholds", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		require.NoError(t, store.SaveThreshold(ctx, &alerts.ThresholdConfig{
			ID:        uuid.New(),
			AlertType: alerts.AlertQueueDepth,
			Threshold: 100,
			Enabled:   true,
			CreatedAt: time.Now(),
		}))
		require.NoError(t, store.SaveThreshold(ctx, &alerts.ThresholdConfig{
			ID:        uuid.New(),
			AlertType: alerts.AlertDLQGrowth,
			Threshold: 5,
			Enabled:   false,
			CreatedAt: time.Now(),
		}))

		enabled, err := store.ListEnabledThresholds(ctx)
		require.NoError(t, err)
		require.Len(t, enabled, 1)
		assert.Equal(t, alerts.AlertQueueDepth, enabled[0].AlertType)
	})

	t.Run("deletes by id", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		cfg := &alerts.ThresholdConfig{
			ID:        uuid.New(),
			AlertType: alerts.AlertQueueDepth,
			Threshold: 100,
			Enabled:   true,
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.SaveThreshold(ctx, cfg))

		require.NoError(t, store.DeleteThreshold(ctx, cfg.ID))

		configs, err := store.ListThresholds(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, configs)

		assert.ErrorIs(t, store.DeleteThreshold(ctx, cfg.ID), alerts.ErrThresholdNotFound)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("failure rate counts failures against completions", func(t *testing.T) {
		t.Parallel()

		store := memory.New(memory.WithBackoffStrategy(backoff.NewConstant(time.Millisecond)))

		completed := newJob("scan", queue.PriorityMedium, 3)
		require.NoError(t, store.CreateJob(ctx, completed))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		require.NoError(t, store.CompleteJob(ctx, completed.ID, nil))

		failed := newJob("scan", queue.PriorityMedium, 1)
		require.NoError(t, store.CreateJob(ctx, failed))
		_, err = store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		_, err = store.FailJob(ctx, failed.ID, "boom", "")
		require.NoError(t, err)

		rate, err := store.FailureRate(ctx, nil, time.Hour)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, rate, 0.01)
	})

	t.Run("queue depth counts claimable jobs", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		require.NoError(t, store.CreateJob(ctx, newJob("scan", queue.PriorityMedium, 3)))
		require.NoError(t, store.CreateJob(ctx, newJob("scan", queue.PriorityMedium, 3)))

		depth, err := store.QueueDepth(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), depth)
	})

	t.Run("dlq growth counts entries in window", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		job := newJob("scan", queue.PriorityMedium, 1)
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, uuid.New(), nil)
		require.NoError(t, err)
		_, err = store.FailJob(ctx, job.ID, "boom", "")
		require.NoError(t, err)
		require.NoError(t, store.MoveToDLQ(ctx, job.ID))

		growth, err := store.DLQGrowth(ctx, nil, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), growth)
	})
}

// TestRetryExhaustionTrail walks a max_retries=2 job through two failures and
// checks the full audit trail: two error log rows and exactly one dead-letter
// entry.
func TestRetryExhaustionTrail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New(memory.WithBackoffStrategy(backoff.NewConstant(0)))

	job := newJob("scan", queue.PriorityMedium, 2)
	require.NoError(t, store.CreateJob(ctx, job))

	// First failure: retry budget not yet exhausted
	claimed, err := store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	updated, err := store.FailJob(ctx, job.ID, "provider timeout", "")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusRetrying, updated.Status)
	assert.Equal(t, int8(1), updated.RetryCount)

	// Second failure exhausts the budget
	claimed, err = store.ClaimJob(ctx, uuid.New(), nil)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	updated, err = store.FailJob(ctx, job.ID, "provider timeout", "")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, updated.Status)
	assert.Equal(t, int8(2), updated.RetryCount)

	require.NoError(t, store.MoveToDLQ(ctx, job.ID))

	logs, err := store.ListJobLogs(ctx, job.ID)
	require.NoError(t, err)

	var errorRows int
	for _, entry := range logs {
		if entry.Level == queue.LogLevelError && entry.Message == queue.LogMsgFailed {
			errorRows++
		}
	}
	assert.Equal(t, 2, errorRows, "one error log row per failed execution")

	entries, err := store.ListEntries(ctx, dlq.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, job.ID, entries[0].JobID)
	assert.Equal(t, int8(2), entries[0].FailureCount)
}

// TestPriorityStarvation documents the strict-priority trade-off: a steady
// supply of high-priority work starves lower priorities indefinitely.
func TestPriorityStarvation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()

	background := newJob("cleanup", queue.PriorityMin, 3)
	require.NoError(t, store.CreateJob(ctx, background))
	for range 100 {
		require.NoError(t, store.CreateJob(ctx, newJob("scan", queue.PriorityMax, 3)))
	}

	workerID := uuid.New()
	for range 100 {
		claimed, err := store.ClaimJob(ctx, workerID, nil)
		require.NoError(t, err)
		assert.Equal(t, queue.PriorityMax, claimed.Priority,
			"the min-priority job must wait behind every max-priority job")
		require.NoError(t, store.CompleteJob(ctx, claimed.ID, nil))
	}

	// Only once the high-priority supply dries up does the backlog job run
	claimed, err := store.ClaimJob(ctx, workerID, nil)
	require.NoError(t, err)
	assert.Equal(t, background.ID, claimed.ID)
}
