package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LifecycleMetrics records the outcome of order lifecycle handling
type LifecycleMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	eventsTotal       *Counter
	actionsTotal      *Counter
	adjustmentsTotal  *Counter
	pointsEarnedTotal *Counter
	eventDuration     *Histogram
}

// LifecycleMetricsConfig holds configuration for lifecycle metrics.
type LifecycleMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLifecycleMetrics creates a new LifecycleMetrics instance.
func NewLifecycleMetrics(cfg LifecycleMetricsConfig) (*LifecycleMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LifecycleMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	lm.eventsTotal, err = NewCounter(
		cfg.Meter,
		"fashun_order_events_total",
		"Total number of order events handled",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	lm.actionsTotal, err = NewCounter(
		cfg.Meter,
		"fashun_order_actions_total",
		"Total number of order side effects by outcome",
		"{actions}",
	)
	if err != nil {
		return nil, err
	}

	lm.adjustmentsTotal, err = NewCounter(
		cfg.Meter,
		"fashun_inventory_adjustments_total",
		"Total number of order line stock adjustments by resulting state",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	lm.pointsEarnedTotal, err = NewCounter(
		cfg.Meter,
		"fashun_loyalty_points_earned_total",
		"Total loyalty points credited to customers",
		"{points}",
	)
	if err != nil {
		return nil, err
	}

	lm.eventDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fashun_order_event_duration_seconds",
		Description: "Time spent running the side effects of one order event",
		Unit:        "s",
		Boundaries:  EventDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordEvent records one handled order event and its duration
func (lm *LifecycleMetrics) RecordEvent(ctx context.Context, eventKind string, d time.Duration) {
	lm.eventsTotal.Inc(ctx, AttrEventKind.String(eventKind))
	lm.eventDuration.RecordDuration(ctx, d, AttrEventKind.String(eventKind))
}

// RecordAction records the outcome of one side effect
func (lm *LifecycleMetrics) RecordAction(ctx context.Context, action, outcome string) {
	lm.actionsTotal.Inc(ctx,
		AttrAction.String(action),
		AttrOutcome.String(outcome),
	)
}

// RecordAdjustment records one stock adjustment
func (lm *LifecycleMetrics) RecordAdjustment(ctx context.Context, direction, state string) {
	lm.adjustmentsTotal.Inc(ctx,
		AttrDirection.String(direction),
		AttrStockState.String(state),
	)
}

// RecordPointsEarned records loyalty points credited by one accrual
func (lm *LifecycleMetrics) RecordPointsEarned(ctx context.Context, points int64) {
	if points <= 0 {
		return
	}
	lm.pointsEarnedTotal.Add(ctx, points)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLifecycleMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Lifecycle attribute keys
var (
	AttrEventKind  = attribute.Key("event_kind")
	AttrAction     = attribute.Key("action")
	AttrOutcome    = attribute.Key("outcome")
	AttrDirection  = attribute.Key("direction")
	AttrStockState = attribute.Key("stock_state")
)
