package inventory

import (
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeInventory = "Inventory"

// Event type constants
const (
	EventTypeStockDepleted    = "StockDepleted"
	EventTypeStockLow         = "StockLow"
	EventTypeStockReplenished = "StockReplenished"
	EventTypeStockShortfall   = "StockShortfall"
)

// StockDepletedEvent is raised when a decrement takes a product to zero
type StockDepletedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID `json:"product_id"`
	PreviousQuantity int64     `json:"previous_quantity"`
}

// EventType returns the event type name
func (e *StockDepletedEvent) EventType() string {
	return EventTypeStockDepleted
}

// StockLowEvent is raised when a decrement leaves stock at or below the threshold
type StockLowEvent struct {
	shared.BaseDomainEvent
	ProductID       uuid.UUID `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
	Threshold       int64     `json:"threshold"`
}

// EventType returns the event type name
func (e *StockLowEvent) EventType() string {
	return EventTypeStockLow
}

// StockReplenishedEvent is raised when a restore brings a sold-out product back.
// It is the back-in-stock notification candidate.
type StockReplenishedEvent struct {
	shared.BaseDomainEvent
	ProductID       uuid.UUID `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
}

// EventType returns the event type name
func (e *StockReplenishedEvent) EventType() string {
	return EventTypeStockReplenished
}

// StockShortfallEvent is raised when an order asked for more than was on hand
type StockShortfallEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Requested int64     `json:"requested"`
	Available int64     `json:"available"`
	Shortfall int64     `json:"shortfall"`
}

// EventType returns the event type name
func (e *StockShortfallEvent) EventType() string {
	return EventTypeStockShortfall
}

// EventsFor returns the domain events signalled by an adjustment
func EventsFor(adj Adjustment) []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0, 2)
	switch adj.State {
	case StockStateOutOfStock:
		events = append(events, &StockDepletedEvent{
			BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockDepleted, AggregateTypeInventory, adj.ProductID),
			ProductID:        adj.ProductID,
			PreviousQuantity: adj.Previous,
		})
	case StockStateLow:
		events = append(events, &StockLowEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLow, AggregateTypeInventory, adj.ProductID),
			ProductID:       adj.ProductID,
			CurrentQuantity: adj.Current,
			Threshold:       adj.Threshold,
		})
	case StockStateBackInStock:
		events = append(events, &StockReplenishedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReplenished, AggregateTypeInventory, adj.ProductID),
			ProductID:       adj.ProductID,
			CurrentQuantity: adj.Current,
		})
	}
	if adj.HasShortfall() {
		events = append(events, &StockShortfallEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockShortfall, AggregateTypeInventory, adj.ProductID),
			ProductID:       adj.ProductID,
			Requested:       adj.Requested,
			Available:       adj.Previous,
			Shortfall:       adj.Shortfall,
		})
	}
	return events
}
