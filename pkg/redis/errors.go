package redis

import "errors"

// Common errors
var (
	// ErrFailedToParseConnString is returned for a malformed connection URL
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")

	// ErrNotReady is returned when the server never answered a ping
	ErrNotReady = errors.New("redis did not become ready within the given time period")

	// ErrHealthcheckFailed is returned by the healthcheck probe
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
