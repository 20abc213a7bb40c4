package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Sender delivers JSON payloads to HTTP endpoints with optional signing,
// retries, and circuit breaking. A single Sender is safe for concurrent use
// across endpoints.
type Sender struct {
	client *http.Client
}

// NewSender creates a webhook sender with a default HTTP client.
func NewSender() *Sender {
	return NewSenderWithClient(&http.Client{Timeout: 30 * time.Second})
}

// NewSenderWithClient creates a webhook sender using the provided client.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Sender{client: client}
}

// Send marshals data as JSON and POSTs it to webhookURL, retrying transient
// failures per the configured strategy. Responses in the 2xx range count as
// delivered; other 4xx responses (except 408 and 429) are permanent and stop
// the retry loop.
func (s *Sender) Send(ctx context.Context, webhookURL string, data any, opts ...SendOption) error {
	options := defaultSendOptions()
	for _, opt := range opts {
		opt(options)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validateURL(webhookURL); err != nil {
		return err
	}

	if options.breaker != nil && !options.breaker.Allow() {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, webhookURL)
	}

	var lastErr error
	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := options.strategy.Delay(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err := s.attempt(ctx, webhookURL, payload, options)
		if err == nil {
			if options.breaker != nil {
				options.breaker.RecordSuccess()
			}
			return nil
		}
		lastErr = err

		if options.breaker != nil {
			options.breaker.RecordFailure()
		}
		if isPermanentStatus(status) {
			return fmt.Errorf("%w: status %d from %s", ErrPermanentFailure, status, webhookURL)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, options.maxAttempts, lastErr)
}

// attempt performs one delivery. The returned status is zero on transport
// errors.
func (s *Sender) attempt(ctx context.Context, webhookURL string, payload []byte, options *sendOptions) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range options.headers {
		req.Header.Set(k, v)
	}

	if options.secret != "" {
		sig, err := SignPayload(options.secret, payload)
		if err != nil {
			return 0, err
		}
		for k, v := range sig.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func validateURL(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("%w: URL is empty", ErrInvalidURL)
	}
	u, err := url.Parse(webhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, webhookURL)
	}
	return nil
}

// isPermanentStatus reports whether a status code will not succeed on retry.
// 408 (timeout) and 429 (rate limited) are transient despite being 4xx.
func isPermanentStatus(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	return status != http.StatusRequestTimeout && status != http.StatusTooManyRequests
}
