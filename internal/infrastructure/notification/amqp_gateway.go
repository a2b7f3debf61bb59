// Package notification hands notification requests to the delivery service.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appinventory "github.com/fashun/backend/internal/application/inventory"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/infrastructure/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routing key prefixes on the notifications exchange
const (
	routingPrefixNotification = "notification."
	routingPrefixCandidate    = "candidate."
	routingPrefixAlert        = "alert."
)

// AMQPGateway publishes notification requests to the notifications exchange.
// Acceptance means the broker took the message; delivery happens downstream.
type AMQPGateway struct {
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAMQPGateway creates a gateway on top of publisher
func NewAMQPGateway(publisher messaging.Publisher, logger *zap.Logger) *AMQPGateway {
	return &AMQPGateway{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Send validates and publishes req under routing key notification.<type>
func (g *AMQPGateway) Send(ctx context.Context, req notification.Request) error {
	if err := checkRequest(req); err != nil {
		return err
	}
	return g.publish(ctx, routingPrefixNotification+req.Type.String(), req.IdempotencyKey, req)
}

// Offer publishes a back_in_stock candidate for the subscription service to
// resolve into recipients
func (g *AMQPGateway) Offer(ctx context.Context, candidate notification.Request) error {
	return g.publish(ctx, routingPrefixCandidate+candidate.Type.String(), candidate.IdempotencyKey, candidate)
}

// SendAlert publishes a stock alert for operators
func (g *AMQPGateway) SendAlert(ctx context.Context, alert appinventory.StockAlert) error {
	return g.publish(ctx, routingPrefixAlert+alert.AlertType, "", alert)
}

func (g *AMQPGateway) publish(ctx context.Context, routingKey, messageID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}

	if err := g.publisher.Publish(ctx, messaging.Message{
		RoutingKey: routingKey,
		MessageID:  messageID,
		Body:       body,
		Timestamp:  g.now(),
	}); err != nil {
		return err
	}

	g.logger.Debug("notification published",
		zap.String("routing_key", routingKey),
		zap.String("message_id", messageID),
	)
	return nil
}

// checkRequest rejects requests the delivery service could never act on
func checkRequest(req notification.Request) error {
	if !req.Type.IsValid() {
		return notification.Reject(req, "unknown notification type")
	}
	if req.Recipient == "" {
		return notification.Reject(req, "missing recipient")
	}
	return nil
}

var (
	_ notification.Gateway            = (*AMQPGateway)(nil)
	_ appinventory.BackInStockSink    = (*AMQPGateway)(nil)
	_ appinventory.StockAlertNotifier = (*AMQPGateway)(nil)
)
