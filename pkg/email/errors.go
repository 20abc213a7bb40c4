package email

import "errors"

// Common errors
var (
	// ErrFailedToSendEmail is returned when the provider rejects or drops a message
	ErrFailedToSendEmail = errors.New("failed to send email")

	// ErrInvalidConfig is returned when the sender configuration is incomplete
	ErrInvalidConfig = errors.New("invalid email configuration")

	// ErrInvalidParams is returned when send parameters fail validation
	ErrInvalidParams = errors.New("invalid email parameters")
)
