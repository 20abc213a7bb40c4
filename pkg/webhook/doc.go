// Package webhook delivers signed JSON payloads to HTTP endpoints.
//
// The alert webhook channel is its primary consumer: alerts are POSTed with
// HMAC-SHA256 signature headers (X-Webhook-Signature, X-Webhook-Timestamp,
// X-Webhook-ID) so receivers can verify authenticity and reject replays.
//
// Delivery is retried with a configurable backoff strategy; 4xx responses
// other than 408 and 429 are treated as permanent and abort the retry loop.
// An optional circuit breaker stops hammering an endpoint that keeps failing.
//
//	sender := webhook.NewSender()
//	err := sender.Send(ctx, url, alert,
//	    webhook.WithSignature(secret),
//	    webhook.WithMaxAttempts(5),
//	    webhook.WithCircuitBreaker(breaker),
//	)
//
// Receivers verify with the matching helpers:
//
//	sig, err := webhook.ExtractSignatureHeaders(r.Header)
//	if err != nil { ... }
//	err = webhook.VerifySignature(secret, body, sig, 5*time.Minute)
package webhook
