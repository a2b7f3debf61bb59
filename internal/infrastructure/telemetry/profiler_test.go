package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServerAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "fashun"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", "goroutines", "cpu"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileGoroutines}, types)

	_, err = ParseProfileTypes([]string{"heap"})
	assert.ErrorContains(t, err, `unknown profile type "heap"`)
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("attaches non-empty labels", func(t *testing.T) {
		var kind, key string
		var hasAction bool
		WithProfilingLabels(context.Background(), map[string]string{
			ProfilingLabelEventKind:  "updated",
			ProfilingLabelRoutingKey: "order.updated",
			ProfilingLabelAction:     "",
		}, func(ctx context.Context) {
			kind, _ = pprof.Label(ctx, ProfilingLabelEventKind)
			key, _ = pprof.Label(ctx, ProfilingLabelRoutingKey)
			_, hasAction = pprof.Label(ctx, ProfilingLabelAction)
		})

		assert.Equal(t, "updated", kind)
		assert.Equal(t, "order.updated", key)
		assert.False(t, hasAction)
	})

	t.Run("runs fn without labels", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
		assert.True(t, called)
	})
}
