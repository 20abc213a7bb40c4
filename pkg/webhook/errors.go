package webhook

import "errors"

// Common errors
var (
	// ErrDeliveryFailed is returned when every delivery attempt failed
	ErrDeliveryFailed = errors.New("webhook delivery failed")

	// ErrInvalidConfiguration is returned for invalid setup or parameters
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")

	// ErrPermanentFailure is returned for responses that will not succeed on retry
	ErrPermanentFailure = errors.New("permanent webhook failure")

	// ErrCircuitOpen is returned when the circuit breaker is blocking requests
	ErrCircuitOpen = errors.New("webhook circuit breaker is open")

	// ErrInvalidPayload is returned when the payload cannot be used
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrInvalidURL is returned when the destination URL is unusable
	ErrInvalidURL = errors.New("invalid webhook URL")
)

// IsCircuitOpen checks if an error indicates the circuit breaker is open
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
