package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/queue"
)

func TestNewJobHandler(t *testing.T) {
	t.Parallel()

	t.Run("decodes the payload before the function runs", func(t *testing.T) {
		t.Parallel()

		type reportPayload struct {
			TenantID string `json:"tenant_id"`
			Month    string `json:"month"`
		}

		handler := queue.NewJobHandler("generate_report",
			func(ctx context.Context, p reportPayload) (json.RawMessage, error) {
				assert.Equal(t, "acme", p.TenantID)
				assert.Equal(t, "2026-08", p.Month)
				return json.RawMessage(`{"pages":12}`), nil
			})
		assert.Equal(t, "generate_report", handler.JobType())

		job := &queue.Job{
			ID:      uuid.New(),
			JobType: "generate_report",
			Payload: json.RawMessage(`{"tenant_id":"acme","month":"2026-08"}`),
		}
		result, err := handler.Handle(context.Background(), job)
		require.NoError(t, err)
		assert.JSONEq(t, `{"pages":12}`, string(result))
	})

	t.Run("malformed payload fails the execution", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := queue.NewJobHandler("generate_report",
			func(ctx context.Context, p struct{}) (json.RawMessage, error) {
				called = true
				return nil, nil
			})

		job := &queue.Job{ID: uuid.New(), Payload: json.RawMessage(`{not json`)}
		result, err := handler.Handle(context.Background(), job)
		assert.Error(t, err)
		assert.Nil(t, result)
		assert.False(t, called, "function must not run on a payload it cannot decode")
	})
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	handler := queue.HandlerFunc("raw_passthrough",
		func(ctx context.Context, job *queue.Job) (json.RawMessage, error) {
			return job.Payload, nil
		})
	assert.Equal(t, "raw_passthrough", handler.JobType())

	job := &queue.Job{
		ID:        uuid.New(),
		JobType:   "raw_passthrough",
		Payload:   json.RawMessage(`{"echo":true}`),
		CreatedAt: time.Now(),
	}
	result, err := handler.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, job.Payload, result)
}

func TestProgressFromContext(t *testing.T) {
	t.Parallel()

	t.Run("no-op reporter when none attached", func(t *testing.T) {
		t.Parallel()

		reporter := queue.ProgressFromContext(context.Background())
		require.NotNil(t, reporter)
		assert.NoError(t, reporter.ReportProgress(context.Background(), queue.LogLevelInfo, "ignored", nil))
	})
}
