// Package redis provides Redis connection management for the alert pub/sub
// channel.
//
// Connect dials with retries bounded by a connect timeout, so processes
// restarted alongside Redis do not give up before it accepts connections:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	notifier, err := alerts.NewRedisNotifier(client, "queue:alerts")
//
// Healthcheck returns a probe for readiness endpoints.
package redis
