package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evocloud/jobqueue/pkg/queue"
)

// MockAdminRepository is a mock implementation of AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewJanitor(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		janitor, err := queue.NewJanitor(new(MockAdminRepository))
		require.NoError(t, err)
		require.NotNil(t, janitor)
	})

	t.Run("nil repository error", func(t *testing.T) {
		t.Parallel()

		janitor, err := queue.NewJanitor(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, janitor)
	})
}

func TestJanitorSweep(t *testing.T) {
	t.Parallel()

	t.Run("releases stale claims with configured threshold", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockAdminRepository)
		mockRepo.On("ReleaseStaleClaims", mock.Anything, 10*time.Minute).
			Return(int64(3), nil).Once()

		janitor, err := queue.NewJanitor(mockRepo, queue.WithStaleClaimDuration(10*time.Minute))
		require.NoError(t, err)

		released, err := janitor.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), released)
		mockRepo.AssertExpectations(t)
	})

	t.Run("defaults to thirty minutes", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockAdminRepository)
		mockRepo.On("ReleaseStaleClaims", mock.Anything, 30*time.Minute).
			Return(int64(0), nil).Once()

		janitor, err := queue.NewJanitor(mockRepo)
		require.NoError(t, err)

		released, err := janitor.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, released)
		mockRepo.AssertExpectations(t)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()

		storageErr := errors.New("connection reset")
		mockRepo := new(MockAdminRepository)
		mockRepo.On("ReleaseStaleClaims", mock.Anything, mock.Anything).
			Return(int64(0), storageErr).Once()

		janitor, err := queue.NewJanitor(mockRepo)
		require.NoError(t, err)

		released, err := janitor.Sweep(context.Background())
		assert.ErrorIs(t, err, storageErr)
		assert.Zero(t, released)
	})
}

func TestJanitorRun(t *testing.T) {
	t.Parallel()

	t.Run("sweeps on the ticker until cancelled", func(t *testing.T) {
		t.Parallel()

		swept := make(chan struct{})
		mockRepo := new(MockAdminRepository)
		mockRepo.On("ReleaseStaleClaims", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				select {
				case swept <- struct{}{}:
				default:
				}
			}).
			Return(int64(1), nil)

		janitor, err := queue.NewJanitor(mockRepo, queue.WithSweepInterval(10*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- janitor.Run(ctx)() }()

		select {
		case <-swept:
		case <-time.After(5 * time.Second):
			t.Fatal("janitor never swept")
		}

		cancel()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("janitor did not stop after cancel")
		}
	})
}
