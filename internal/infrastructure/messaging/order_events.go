package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fashun/backend/internal/domain/order"
	"github.com/google/uuid"
)

// Routing keys of the order events the commerce system emits
const (
	RoutingKeyOrderCreated = "order.created"
	RoutingKeyOrderUpdated = "order.updated"
)

// OrderEventMessage is the wire form of an order mutation
type OrderEventMessage struct {
	EventID    uuid.UUID    `json:"event_id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Previous   *order.Order `json:"previous,omitempty"`
	Current    order.Order  `json:"current"`
}

// DecodeOrderEvent parses body into an order event. The message type falls
// back to the routing key when the payload does not carry one; when both are
// set they must agree.
func DecodeOrderEvent(routingKey string, body []byte) (order.OrderEvent, error) {
	var msg OrderEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return order.OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	switch {
	case msg.Type == "":
		msg.Type = routingKey
	case routingKey != "" && msg.Type != routingKey:
		return order.OrderEvent{}, fmt.Errorf("order event type %q does not match routing key %q", msg.Type, routingKey)
	}

	e := order.OrderEvent{
		ID:         msg.EventID,
		Current:    msg.Current,
		OccurredAt: msg.OccurredAt,
	}
	switch msg.Type {
	case RoutingKeyOrderCreated:
		e.Kind = order.EventKindCreated
	case RoutingKeyOrderUpdated:
		e.Kind = order.EventKindUpdated
		e.Previous = msg.Previous
	default:
		return order.OrderEvent{}, fmt.Errorf("unknown order event type %q", msg.Type)
	}
	return e, nil
}

// EncodeOrderEvent is the inverse of DecodeOrderEvent
func EncodeOrderEvent(e order.OrderEvent) (Message, error) {
	key := RoutingKeyOrderUpdated
	if e.Kind == order.EventKindCreated {
		key = RoutingKeyOrderCreated
	}
	body, err := json.Marshal(OrderEventMessage{
		EventID:    e.ID,
		Type:       key,
		OccurredAt: e.OccurredAt,
		Previous:   e.Previous,
		Current:    e.Current,
	})
	if err != nil {
		return Message{}, fmt.Errorf("encode order event: %w", err)
	}
	return Message{
		RoutingKey: key,
		MessageID:  e.ID.String(),
		Body:       body,
		Timestamp:  e.OccurredAt,
	}, nil
}
