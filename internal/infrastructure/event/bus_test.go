package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func refundEvent() *order.RefundRequestedEvent {
	return order.NewRefundRequestedEvent(&order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1001",
		Total:       decimal.RequireFromString("49.99"),
	})
}

func startedBus(t *testing.T, logger *zap.Logger) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_DeliversByType(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	refunds := newRecordingHandler(order.EventTypeRefundRequested)
	other := newRecordingHandler("StockLow")
	all := newRecordingHandler()

	bus.Subscribe(refunds)
	bus.Subscribe(other)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), refundEvent()))

	assert.Equal(t, 1, refunds.count())
	assert.Equal(t, 0, other.count())
	assert.Equal(t, 1, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideDeclared(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	handler := newRecordingHandler("StockLow")

	bus.Subscribe(handler, order.EventTypeRefundRequested)
	require.NoError(t, bus.Publish(context.Background(), refundEvent()))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := startedBus(t, zap.New(core))

	failing := newRecordingHandler(order.EventTypeRefundRequested)
	failing.err = errors.New("downstream unavailable")
	panicking := newRecordingHandler(order.EventTypeRefundRequested)
	panicking.panicWith = "boom"
	healthy := newRecordingHandler(order.EventTypeRefundRequested)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), refundEvent()))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 2, logs.FilterMessage("event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t, zap.NewNop())
	handler := newRecordingHandler(order.EventTypeRefundRequested)

	bus.Subscribe(handler)
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), refundEvent()))

	assert.Equal(t, 0, handler.count())
}

func TestInMemoryEventBus_StoppedBusRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newRecordingHandler()
	bus.Subscribe(handler)

	assert.ErrorIs(t, bus.Publish(context.Background(), refundEvent()), ErrBusStopped)

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
	assert.ErrorIs(t, bus.Publish(context.Background(), refundEvent()), ErrBusStopped)
	assert.Equal(t, 0, handler.count())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := newRecordingHandler()
	b := newRecordingHandler()
	c := newRecordingHandler()

	r.Register(a, "StockLow", "StockDepleted")
	r.Register(a, "StockLow")
	r.Register(b, "StockLow")
	r.Register(c)

	handlers := r.HandlersFor("StockLow")
	require.Len(t, handlers, 3)
	assert.Same(t, a, handlers[0])
	assert.Same(t, b, handlers[1])
	assert.Same(t, c, handlers[2])
	assert.Equal(t, 3, r.Len())

	r.Unregister(a)
	assert.Len(t, r.HandlersFor("StockDepleted"), 1)
	assert.Equal(t, 2, r.Len())

	r.Unregister(c)
	assert.Empty(t, r.HandlersFor("StockDepleted"))
}
