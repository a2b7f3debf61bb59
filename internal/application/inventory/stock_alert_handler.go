package inventory

import (
	"context"
	"fmt"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Alert types
const (
	AlertTypeLowStock   = "low_stock"
	AlertTypeOutOfStock = "out_of_stock"
	AlertTypeShortfall  = "shortfall"
)

// StockAlertHandler handles stock threshold events and turns them into
// operator alerts
type StockAlertHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
}

// StockAlertNotifier is the interface for sending stock alerts
type StockAlertNotifier interface {
	// SendAlert sends a stock alert notification
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockAlert represents a stock level alert
type StockAlert struct {
	ProductID       string `json:"product_id"`
	CurrentQuantity int64  `json:"current_quantity"`
	Threshold       int64  `json:"threshold,omitempty"`
	Shortfall       int64  `json:"shortfall,omitempty"`
	AlertType       string `json:"alert_type"`
}

// NewStockAlertHandler creates a new handler for stock threshold events
func NewStockAlertHandler(logger *zap.Logger) *StockAlertHandler {
	return &StockAlertHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockAlertHandler) WithNotifier(notifier StockAlertNotifier) *StockAlertHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockAlertHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeStockDepleted,
		inventory.EventTypeStockLow,
		inventory.EventTypeStockShortfall,
	}
}

// Handle processes a stock threshold event
func (h *StockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var alert StockAlert
	switch e := event.(type) {
	case *inventory.StockDepletedEvent:
		alert = StockAlert{
			ProductID: e.ProductID.String(),
			AlertType: AlertTypeOutOfStock,
		}
	case *inventory.StockLowEvent:
		alert = StockAlert{
			ProductID:       e.ProductID.String(),
			CurrentQuantity: e.CurrentQuantity,
			Threshold:       e.Threshold,
			AlertType:       AlertTypeLowStock,
		}
	case *inventory.StockShortfallEvent:
		alert = StockAlert{
			ProductID: e.ProductID.String(),
			Shortfall: e.Shortfall,
			AlertType: AlertTypeShortfall,
		}
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	h.logger.Warn("stock threshold crossed",
		zap.String("product_id", alert.ProductID),
		zap.String("alert_type", alert.AlertType),
		zap.Int64("current_quantity", alert.CurrentQuantity),
		zap.Int64("threshold", alert.Threshold),
		zap.Int64("shortfall", alert.Shortfall),
	)

	if h.notifier != nil {
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			h.logger.Error("failed to send stock alert notification",
				zap.String("product_id", alert.ProductID),
				zap.Error(err),
			)
			// Don't return error - notification failure shouldn't fail the event handling
		}
	}

	return nil
}

// Ensure StockAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*StockAlertHandler)(nil)

// LoggingStockAlertNotifier is a simple notifier that logs alerts
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(ctx context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("product_id", alert.ProductID),
		zap.Int64("current_qty", alert.CurrentQuantity),
		zap.Int64("threshold", alert.Threshold),
	)
	return nil
}

// Ensure LoggingStockAlertNotifier implements StockAlertNotifier
var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
