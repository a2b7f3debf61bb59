package inventory

import (
	"context"

	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// BackInStockSink receives back_in_stock notification candidates.
// Resolving who wants to hear about the product is up to the sink.
type BackInStockSink interface {
	Offer(ctx context.Context, candidate notification.Request) error
}

// BackInStockCandidate builds the notification candidate for a restore that
// brought a product back in stock. The recipient is left empty for the sink
// to fill in.
func BackInStockCandidate(adj inventory.Adjustment, idempotencyKey string) notification.Request {
	req := notification.NewRequest("", notification.TypeBackInStock, map[string]any{
		"productId": adj.ProductID.String(),
		"quantity":  adj.Current,
	})
	req.IdempotencyKey = idempotencyKey
	return req
}

// LoggingBackInStockSink logs candidates
type LoggingBackInStockSink struct {
	logger *zap.Logger
}

// NewLoggingBackInStockSink creates a sink that only logs
func NewLoggingBackInStockSink(logger *zap.Logger) *LoggingBackInStockSink {
	return &LoggingBackInStockSink{logger: logger}
}

// Offer logs the candidate
func (s *LoggingBackInStockSink) Offer(ctx context.Context, candidate notification.Request) error {
	s.logger.Info("product back in stock and available for purchase",
		zap.Any("product_id", candidate.TemplateData["productId"]),
		zap.Any("quantity", candidate.TemplateData["quantity"]),
	)
	return nil
}

var _ BackInStockSink = (*LoggingBackInStockSink)(nil)
