package notification

import (
	"context"

	"github.com/fashun/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// LoggingGateway accepts every well-formed request and only logs it.
// Used for local runs without a broker.
type LoggingGateway struct {
	logger *zap.Logger
}

// NewLoggingGateway creates a new LoggingGateway
func NewLoggingGateway(logger *zap.Logger) *LoggingGateway {
	return &LoggingGateway{logger: logger}
}

// Send logs req
func (g *LoggingGateway) Send(ctx context.Context, req notification.Request) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("type", req.Type.String()),
		zap.String("recipient", req.Recipient),
		zap.String("template_id", req.TemplateID),
		zap.String("priority", string(req.Priority)),
	}
	if req.RelatedOrderID != nil {
		fields = append(fields, zap.String("order_id", req.RelatedOrderID.String()))
	}
	if req.IsScheduled() {
		fields = append(fields, zap.Time("scheduled_at", *req.ScheduledAt))
	}
	g.logger.Info("notification accepted", fields...)
	return nil
}

var _ notification.Gateway = (*LoggingGateway)(nil)
