package alerts

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies a queue health metric a threshold applies to.
type AlertType string

const (
	// AlertFailureRate is the percentage of job executions that failed
	// over the trailing window.
	AlertFailureRate AlertType = "failure_rate"
	// AlertDLQGrowth is the number of jobs escalated to the dead-letter
	// queue over the trailing window.
	AlertDLQGrowth AlertType = "dlq_growth"
	// AlertQueueDepth is the current backlog of claimable jobs.
	AlertQueueDepth AlertType = "queue_depth"
)

// Valid reports whether the alert type is known to the monitor.
func (t AlertType) Valid() bool {
	switch t {
	case AlertFailureRate, AlertDLQGrowth, AlertQueueDepth:
		return true
	}
	return false
}

// ThresholdConfig is a per-tenant (or global, when TenantID is nil) tunable
// read continuously by the monitor.
type ThresholdConfig struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	AlertType AlertType  `json:"alert_type"`
	Threshold float64    `json:"threshold"`
	Unit      string     `json:"unit"`
	Enabled   bool       `json:"enabled"`
	Channels  []string   `json:"channels"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Config holds monitor configuration loaded from the environment.
type Config struct {
	EvaluationInterval time.Duration `env:"ALERTS_EVALUATION_INTERVAL" envDefault:"1m"`
	TrailingWindow     time.Duration `env:"ALERTS_TRAILING_WINDOW" envDefault:"15m"`
}
