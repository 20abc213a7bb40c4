package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ConfigRepository defines the persistence contract for threshold configs.
type ConfigRepository interface {
	// SaveThreshold upserts a threshold config keyed by tenant and alert type.
	SaveThreshold(ctx context.Context, cfg *ThresholdConfig) error

	// ListThresholds returns configs for a tenant (nil lists every config).
	ListThresholds(ctx context.Context, tenantID *uuid.UUID) ([]*ThresholdConfig, error)

	// ListEnabledThresholds returns every enabled config across tenants.
	ListEnabledThresholds(ctx context.Context) ([]*ThresholdConfig, error)

	// DeleteThreshold removes a threshold config by id. Returns
	// ErrThresholdNotFound when no config carries the id.
	DeleteThreshold(ctx context.Context, id uuid.UUID) error
}

// StatsRepository exposes the aggregate queue health metrics the monitor
// evaluates. A nil tenantID aggregates across all tenants.
type StatsRepository interface {
	// FailureRate returns the percentage (0-100) of job executions that
	// failed over the trailing window.
	FailureRate(ctx context.Context, tenantID *uuid.UUID, window time.Duration) (float64, error)

	// DLQGrowth returns how many jobs were moved to the dead-letter
	// queue over the trailing window.
	DLQGrowth(ctx context.Context, tenantID *uuid.UUID, window time.Duration) (int64, error)

	// QueueDepth returns the current backlog of claimable jobs.
	QueueDepth(ctx context.Context, tenantID *uuid.UUID) (int64, error)
}

// Monitor periodically evaluates queue health metrics against configured
// thresholds and fans alerts out to notification channels. It is
// observation-only: it never retries or remediates.
type Monitor struct {
	configs   ConfigRepository
	stats     StatsRepository
	notifiers map[string]Notifier
	window    time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithTrailingWindow sets the window metrics are computed over.
func WithTrailingWindow(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithEvaluationInterval sets the tick interval used by Run.
func WithEvaluationInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithNotifiers registers the notification channels threshold configs can
// reference by name.
func WithNotifiers(notifiers ...Notifier) MonitorOption {
	return func(m *Monitor) {
		for _, n := range notifiers {
			if n != nil {
				m.notifiers[n.Name()] = n
			}
		}
	}
}

// WithMonitorLogger sets the logger for the Monitor.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates an alert monitor.
func NewMonitor(configs ConfigRepository, stats StatsRepository, opts ...MonitorOption) (*Monitor, error) {
	if configs == nil {
		return nil, ErrConfigRepositoryNil
	}
	if stats == nil {
		return nil, ErrStatsRepositoryNil
	}

	m := &Monitor{
		configs:   configs,
		stats:     stats,
		notifiers: make(map[string]Notifier),
		window:    15 * time.Minute,
		interval:  time.Minute,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	// The log channel is always available as a fallback
	if _, ok := m.notifiers["log"]; !ok {
		m.notifiers["log"] = NewLogNotifier(m.logger)
	}

	return m, nil
}

// ConfigureThreshold validates and upserts a threshold config.
func (m *Monitor) ConfigureThreshold(ctx context.Context, cfg *ThresholdConfig) error {
	if !cfg.AlertType.Valid() {
		return ErrInvalidAlertType
	}
	if cfg.Threshold < 0 {
		return ErrInvalidThreshold
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	return m.configs.SaveThreshold(ctx, cfg)
}

// Thresholds lists threshold configs for a tenant (nil lists all).
func (m *Monitor) Thresholds(ctx context.Context, tenantID *uuid.UUID) ([]*ThresholdConfig, error) {
	return m.configs.ListThresholds(ctx, tenantID)
}

// RemoveThreshold deletes a threshold config so the alert type is no longer
// evaluated for its scope. Returns ErrThresholdNotFound for an unknown id.
func (m *Monitor) RemoveThreshold(ctx context.Context, id uuid.UUID) error {
	return m.configs.DeleteThreshold(ctx, id)
}

// Evaluate runs one evaluation pass over every enabled threshold config.
// Each config is evaluated in isolation: a failure for one tenant is
// logged and joined into the returned error but never prevents evaluation
// of the others.
func (m *Monitor) Evaluate(ctx context.Context) error {
	cfgs, err := m.configs.ListEnabledThresholds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled thresholds: %w", err)
	}

	var errs []error
	for _, cfg := range cfgs {
		if err := m.evaluateOne(ctx, cfg); err != nil {
			m.logger.Error("threshold evaluation failed",
				slog.String("alert_type", string(cfg.AlertType)),
				slog.Any("tenant_id", cfg.TenantID),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// evaluateOne computes the metric for a single config and notifies when
// the threshold is exceeded.
func (m *Monitor) evaluateOne(ctx context.Context, cfg *ThresholdConfig) error {
	value, err := m.metricValue(ctx, cfg)
	if err != nil {
		return err
	}

	if value <= cfg.Threshold {
		return nil
	}

	alert := Alert{
		TenantID:    cfg.TenantID,
		Type:        cfg.AlertType,
		Value:       value,
		Threshold:   cfg.Threshold,
		Unit:        cfg.Unit,
		Message:     fmt.Sprintf("queue health metric %s is %.2f %s, above threshold %.2f %s", cfg.AlertType, value, cfg.Unit, cfg.Threshold, cfg.Unit),
		TriggeredAt: time.Now(),
	}

	m.notify(ctx, cfg.Channels, alert)
	return nil
}

// metricValue resolves the metric the config watches.
func (m *Monitor) metricValue(ctx context.Context, cfg *ThresholdConfig) (float64, error) {
	switch cfg.AlertType {
	case AlertFailureRate:
		return m.stats.FailureRate(ctx, cfg.TenantID, m.window)
	case AlertDLQGrowth:
		n, err := m.stats.DLQGrowth(ctx, cfg.TenantID, m.window)
		return float64(n), err
	case AlertQueueDepth:
		n, err := m.stats.QueueDepth(ctx, cfg.TenantID)
		return float64(n), err
	default:
		return 0, ErrInvalidAlertType
	}
}

// notify fans the alert out to the configured channels, best effort.
func (m *Monitor) notify(ctx context.Context, channels []string, alert Alert) {
	if len(channels) == 0 {
		channels = []string{"log"}
	}

	for _, name := range channels {
		notifier, ok := m.notifiers[name]
		if !ok {
			m.logger.Warn("alert references unknown notification channel",
				slog.String("channel", name),
				slog.String("alert_type", string(alert.Type)))
			continue
		}
		if err := notifier.Notify(ctx, alert); err != nil {
			// Best effort delivery: log and try the next channel
			m.logger.Error("failed to deliver alert",
				slog.String("channel", name),
				slog.String("alert_type", string(alert.Type)),
				slog.String("error", err.Error()))
		}
	}
}

// Run evaluates on a ticker until the context is cancelled. Intended for
// hosts that want the monitor self-driven; Evaluate remains available for
// externally triggered evaluation.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Evaluate(ctx); err != nil {
				m.logger.Error("alert evaluation pass failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
