package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	logger := zap.New(core).With(zap.String("order_number", "ORD-1"))
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "ORD-1", entry.ContextMap()["order_number"])
	}
}
