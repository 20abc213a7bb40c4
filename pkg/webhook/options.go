package webhook

import (
	"time"

	"github.com/evocloud/jobqueue/pkg/backoff"
)

type sendOptions struct {
	headers     map[string]string
	maxAttempts int
	strategy    backoff.Strategy
	secret      string
	breaker     *CircuitBreaker
}

func defaultSendOptions() *sendOptions {
	return &sendOptions{
		headers:     make(map[string]string),
		maxAttempts: 3,
		strategy:    backoff.NewExponential(time.Second, 30*time.Second),
	}
}

// SendOption configures a single Send call.
type SendOption func(*sendOptions)

// WithHeader adds a custom header to the request.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		o.headers[key] = value
	}
}

// WithHeaders adds multiple custom headers to the request.
func WithHeaders(headers map[string]string) SendOption {
	return func(o *sendOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithMaxAttempts sets the total number of delivery attempts.
func WithMaxAttempts(n int) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryStrategy sets the backoff strategy between attempts.
func WithRetryStrategy(strategy backoff.Strategy) SendOption {
	return func(o *sendOptions) {
		if strategy != nil {
			o.strategy = strategy
		}
	}
}

// WithSignature enables HMAC-SHA256 payload signing with the given secret.
func WithSignature(secret string) SendOption {
	return func(o *sendOptions) {
		o.secret = secret
	}
}

// WithCircuitBreaker guards the delivery with a circuit breaker. The breaker
// should be shared across Send calls to the same endpoint.
func WithCircuitBreaker(cb *CircuitBreaker) SendOption {
	return func(o *sendOptions) {
		o.breaker = cb
	}
}

// WithNoRetry limits delivery to a single attempt.
func WithNoRetry() SendOption {
	return func(o *sendOptions) {
		o.maxAttempts = 1
	}
}
