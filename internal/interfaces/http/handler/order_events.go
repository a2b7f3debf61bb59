package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/fashun/backend/internal/application/lifecycle"
	"github.com/fashun/backend/internal/domain/order"
	"github.com/fashun/backend/internal/infrastructure/messaging"
	"github.com/fashun/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the event id when the payload has none
const IdempotencyKeyHeader = "Idempotency-Key"

// Engine runs the side effects of order events
type Engine interface {
	HandleOrderCreated(ctx context.Context, current order.Order, opts ...lifecycle.HandleOption) (*lifecycle.Report, error)
	HandleOrderUpdated(ctx context.Context, previous *order.Order, current order.Order, opts ...lifecycle.HandleOption) (*lifecycle.Report, error)
}

// OrderEventHandler accepts order events over HTTP for hosts that call the
// engine synchronously instead of publishing to the broker. The body has the
// same shape as the broker message; the response is the lifecycle report.
type OrderEventHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewOrderEventHandler creates an OrderEventHandler
func NewOrderEventHandler(engine Engine, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the ingestion endpoint on rg
func (h *OrderEventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/order-events/:kind", h.Handle)
}

var routingKeyByKind = map[string]string{
	string(order.EventKindCreated): messaging.RoutingKeyOrderCreated,
	string(order.EventKindUpdated): messaging.RoutingKeyOrderUpdated,
}

// Handle decodes the event, runs it and returns the report. Side-effect
// failures are part of a 200 response; only malformed events are rejected.
func (h *OrderEventHandler) Handle(c *gin.Context) {
	routingKey, ok := routingKeyByKind[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeUnknownEventKind,
			"event kind must be created or updated"))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidEvent, err.Error()))
		return
	}

	e, err := messaging.DecodeOrderEvent(routingKey, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidEvent, err.Error()))
		return
	}

	var opts []lifecycle.HandleOption
	switch {
	case e.ID != uuid.Nil:
		opts = append(opts, lifecycle.WithEventID(e.ID))
	case c.GetHeader(IdempotencyKeyHeader) != "":
		id, err := uuid.Parse(c.GetHeader(IdempotencyKeyHeader))
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidEvent,
				IdempotencyKeyHeader+" must be a UUID"))
			return
		}
		opts = append(opts, lifecycle.WithEventID(id))
	}

	ctx := c.Request.Context()
	var report *lifecycle.Report
	if e.Kind == order.EventKindCreated {
		report, err = h.engine.HandleOrderCreated(ctx, e.Current, opts...)
	} else {
		report, err = h.engine.HandleOrderUpdated(ctx, e.Previous, e.Current, opts...)
	}
	if err != nil {
		h.logger.Warn("rejected order event over http",
			zap.String("order_number", e.Current.OrderNumber),
			zap.Error(err),
		)
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(dto.ErrCodeInvalidEvent, err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewReportResponse(report)))
}
