package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evocloud/jobqueue/pkg/redis"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("malformed URL", func(t *testing.T) {
		t.Parallel()

		client, err := redis.Connect(context.Background(), redis.Config{
			ConnectionURL:  "not-a-redis-url",
			RetryAttempts:  1,
			RetryInterval:  time.Millisecond,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrFailedToParseConnString)
		assert.Nil(t, client)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		client, err := redis.Connect(context.Background(), redis.Config{
			// Reserved TEST-NET address, nothing listens there
			ConnectionURL:  "redis://192.0.2.1:6379/0",
			RetryAttempts:  2,
			RetryInterval:  time.Millisecond,
			ConnectTimeout: 500 * time.Millisecond,
		})
		assert.ErrorIs(t, err, redis.ErrNotReady)
		assert.Nil(t, client)
	})
}
