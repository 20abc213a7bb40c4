package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Alert is the event emitted when a metric crosses its configured threshold.
type Alert struct {
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
	Type        AlertType  `json:"alert_type"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold"`
	Unit        string     `json:"unit"`
	Message     string     `json:"message"`
	TriggeredAt time.Time  `json:"triggered_at"`
}

// Notifier delivers an alert through one channel. Delivery is best effort;
// the monitor logs failures and moves on.
type Notifier interface {
	// Name is the channel key threshold configs reference.
	Name() string

	// Notify delivers the alert.
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Always available as a
// channel of last resort.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Name returns "log".
func (n *LogNotifier) Name() string { return "log" }

// Notify writes the alert at warn level.
func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	attrs := []any{
		slog.String("alert_type", string(alert.Type)),
		slog.Float64("value", alert.Value),
		slog.Float64("threshold", alert.Threshold),
		slog.String("unit", alert.Unit),
	}
	if alert.TenantID != nil {
		attrs = append(attrs, slog.String("tenant_id", alert.TenantID.String()))
	}
	n.logger.WarnContext(ctx, alert.Message, attrs...)
	return nil
}
