// Package event delivers in-process domain events, such as refund flags and
// stock alerts, to the handlers subscribed to them.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InMemoryEventBus implements EventBus with synchronous in-process delivery.
// A failing or panicking handler is logged and does not stop delivery to
// the remaining handlers.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events to their handlers in order.
// Publishing on a stopped bus returns ErrBusStopped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return ErrBusStopped
	}
	for _, event := range events {
		for _, handler := range b.registry.HandlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				b.logger.Error("event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for the types the handler
// declares when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start opens the bus for publishing
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Int("handlers", b.registry.Len()))
	return nil
}

// Stop closes the bus. Delivery is synchronous, so nothing is in flight
// once Publish has returned.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// ErrBusStopped is returned when publishing on a bus that is not running
var ErrBusStopped = fmt.Errorf("event bus is not running")

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "event.dispatch",
		telemetry.WithAttribute("event_type", event.EventType()),
		telemetry.WithAttribute("event_id", event.EventID().String()),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
