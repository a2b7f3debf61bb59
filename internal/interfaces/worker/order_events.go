// Package worker adapts broker deliveries to the order lifecycle engine.
package worker

import (
	"context"
	"fmt"

	"github.com/fashun/backend/internal/application/lifecycle"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/infrastructure/logger"
	"github.com/fashun/backend/internal/infrastructure/messaging"
	"github.com/fashun/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Engine runs the side effects of order events
type Engine interface {
	HandleOrderCreated(ctx context.Context, current order.Order, opts ...lifecycle.HandleOption) (*lifecycle.Report, error)
	HandleOrderUpdated(ctx context.Context, previous *order.Order, current order.Order, opts ...lifecycle.HandleOption) (*lifecycle.Report, error)
}

// OrderEventHandler decodes order.created and order.updated deliveries and
// hands them to the engine
type OrderEventHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewOrderEventHandler creates a new OrderEventHandler
func NewOrderEventHandler(engine Engine, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{engine: engine, logger: logger}
}

// RoutingKeys returns the routing keys the handler understands
func (h *OrderEventHandler) RoutingKeys() []string {
	return []string{messaging.RoutingKeyOrderCreated, messaging.RoutingKeyOrderUpdated}
}

// Handle processes one delivery. Undecodable and malformed events are
// permanent failures; side-effect failures are already in the report and
// never cause a redelivery.
func (h *OrderEventHandler) Handle(ctx context.Context, d amqp091.Delivery) error {
	ctx, log := logger.WithMessageID(ctx, h.logger, d.MessageId)
	ctx, span := telemetry.StartSpan(ctx, "worker.order_event",
		telemetry.WithAttribute("routing_key", d.RoutingKey),
		telemetry.WithAttribute("message_id", d.MessageId),
	)
	defer span.End()

	e, err := messaging.DecodeOrderEvent(d.RoutingKey, d.Body)
	if err != nil {
		telemetry.RecordError(span, err)
		return messaging.Permanent(err)
	}

	var opts []lifecycle.HandleOption
	if id := eventID(e, d); id != uuid.Nil {
		opts = append(opts, lifecycle.WithEventID(id))
	} else {
		log.Warn("order event carries no id, redeliveries will repeat side effects",
			zap.String("order_number", e.Current.OrderNumber),
		)
	}

	var report *lifecycle.Report
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelEventKind:  string(e.Kind),
		telemetry.ProfilingLabelRoutingKey: d.RoutingKey,
	}, func(ctx context.Context) {
		report, err = h.dispatch(ctx, e, opts)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return messaging.Permanent(fmt.Errorf("order %s: %w", e.Current.OrderNumber, err))
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderNumber, report.OrderNumber,
		"failed", report.Count(lifecycle.OutcomeFailed),
	)
	return nil
}

func (h *OrderEventHandler) dispatch(ctx context.Context, e order.OrderEvent, opts []lifecycle.HandleOption) (*lifecycle.Report, error) {
	if e.Kind == order.EventKindCreated {
		return h.engine.HandleOrderCreated(ctx, e.Current, opts...)
	}
	return h.engine.HandleOrderUpdated(ctx, e.Previous, e.Current, opts...)
}

// eventID prefers the id in the payload and falls back to the message id
func eventID(e order.OrderEvent, d amqp091.Delivery) uuid.UUID {
	if e.ID != uuid.Nil {
		return e.ID
	}
	if id, err := uuid.Parse(d.MessageId); err == nil {
		return id
	}
	return uuid.Nil
}
