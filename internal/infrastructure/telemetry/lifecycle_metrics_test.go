package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/fashun/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewLifecycleMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLifecycleMetrics(telemetry.LifecycleMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLifecycleMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLifecycleMetrics(telemetry.LifecycleMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLifecycleMetrics: meter cannot be nil", err.Error())
}

func TestLifecycleMetrics_Record(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLifecycleMetrics(telemetry.LifecycleMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.RecordEvent(ctx, "created", 25*time.Millisecond)
	lm.RecordAction(ctx, "notify", "failed")
	lm.RecordAction(ctx, "decrement_inventory", "succeeded")
	lm.RecordAdjustment(ctx, "decrement", "low_stock")
	lm.RecordPointsEarned(ctx, 49)
	lm.RecordPointsEarned(ctx, 0)
}
