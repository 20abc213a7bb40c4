package alerts

import (
	"context"
	"time"

	"github.com/evocloud/jobqueue/pkg/backoff"
	"github.com/evocloud/jobqueue/pkg/webhook"
)

// WebhookNotifier POSTs alerts as signed JSON payloads to an operator
// endpoint. Payloads carry HMAC-SHA256 signature headers so receivers can
// verify authenticity. A circuit breaker shared across deliveries keeps a
// dead endpoint from absorbing every evaluation pass.
type WebhookNotifier struct {
	url     string
	secret  string
	sender  *webhook.Sender
	breaker *webhook.CircuitBreaker
}

// NewWebhookNotifier creates a webhook-backed notifier.
func NewWebhookNotifier(url, secret string) (*WebhookNotifier, error) {
	if url == "" {
		return nil, ErrWebhookURLEmpty
	}
	if secret == "" {
		return nil, ErrWebhookSecretEmpty
	}
	return &WebhookNotifier{
		url:     url,
		secret:  secret,
		sender:  webhook.NewSender(),
		breaker: webhook.NewCircuitBreaker(5, 2, 30*time.Second),
	}, nil
}

// Name returns "webhook".
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify delivers the alert as a signed POST request with retries.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	return n.sender.Send(ctx, n.url, alert,
		webhook.WithSignature(n.secret),
		webhook.WithMaxAttempts(3),
		webhook.WithRetryStrategy(backoff.NewExponential(time.Second, 10*time.Second)),
		webhook.WithCircuitBreaker(n.breaker),
	)
}
