package alerts

import "errors"

// Common errors
var (
	// ErrConfigRepositoryNil is returned when a nil config repository is provided
	ErrConfigRepositoryNil = errors.New("config repository cannot be nil")

	// ErrStatsRepositoryNil is returned when a nil stats repository is provided
	ErrStatsRepositoryNil = errors.New("stats repository cannot be nil")

	// ErrInvalidAlertType is returned when configuring an unknown alert type
	ErrInvalidAlertType = errors.New("unknown alert type")

	// ErrInvalidThreshold is returned when a threshold is negative
	ErrInvalidThreshold = errors.New("threshold cannot be negative")

	// ErrThresholdNotFound is returned when a threshold config id does not exist
	ErrThresholdNotFound = errors.New("alert threshold config not found")

	// ErrSenderNil is returned when building an email notifier without a sender
	ErrSenderNil = errors.New("email sender cannot be nil")

	// ErrNoRecipients is returned when building an email notifier without recipients
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrWebhookURLEmpty is returned when building a webhook notifier without a URL
	ErrWebhookURLEmpty = errors.New("webhook url cannot be empty")

	// ErrWebhookSecretEmpty is returned when building a webhook notifier without a secret
	ErrWebhookSecretEmpty = errors.New("webhook secret cannot be empty")

	// ErrRedisClientNil is returned when building a redis notifier without a client
	ErrRedisClientNil = errors.New("redis client cannot be nil")
)
