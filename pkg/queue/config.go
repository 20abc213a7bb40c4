package queue

import "time"

// Config holds the configuration for the job queue
type Config struct {
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
	DefaultTimeout     time.Duration `env:"QUEUE_DEFAULT_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrentJobs  int           `env:"QUEUE_MAX_CONCURRENT_JOBS" envDefault:"10"`
	DefaultMaxRetries  int8          `env:"QUEUE_DEFAULT_MAX_RETRIES" envDefault:"3"`
	StaleClaimDuration time.Duration `env:"QUEUE_STALE_CLAIM_DURATION" envDefault:"30m"`
}
