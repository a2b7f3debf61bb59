package lifecycle

import (
	"time"

	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/domain/order"
)

// orderTemplateData is the data every order notification carries
func orderTemplateData(o *order.Order) map[string]any {
	return map[string]any{
		"orderNumber":  o.OrderNumber,
		"customerName": o.DisplayName(),
		"total":        o.Total.StringFixed(2),
		"currency":     o.CurrencyCode(),
	}
}

func itemsTemplateData(o *order.Order) []map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"productId":   item.ProductID.String(),
			"productName": item.ProductName,
			"quantity":    item.Quantity,
			"unitPrice":   item.UnitPrice.StringFixed(2),
		})
	}
	return items
}

// shipmentTemplateData returns the tracking fields of a shipped order.
// Nothing is returned until a tracking number exists.
func shipmentTemplateData(o *order.Order) map[string]any {
	if !o.HasTracking() {
		return nil
	}
	data := map[string]any{
		"trackingNumber": o.TrackingNumber,
		"carrier":        o.Carrier,
		"trackingUrl":    order.TrackingURL(o.TrackingNumber, o.Carrier),
	}
	if o.EstimatedDelivery != nil {
		data["estimatedDelivery"] = o.EstimatedDelivery.Format(time.RFC3339)
	}
	return data
}

// buildOrderNotification builds the request for a planned notify or
// schedule_notify action
func buildOrderNotification(a order.Action, o *order.Order, now time.Time, delay time.Duration) notification.Request {
	var data map[string]any
	switch a.Notification {
	case notification.TypeReviewRequest:
		data = map[string]any{
			"orderNumber":  o.OrderNumber,
			"customerName": o.DisplayName(),
		}
	case notification.TypeOrderConfirmation:
		data = orderTemplateData(o)
		data["items"] = itemsTemplateData(o)
		data["itemCount"] = o.TotalQuantity()
	case notification.TypeOrderShipped:
		data = orderTemplateData(o)
		for k, v := range shipmentTemplateData(o) {
			data[k] = v
		}
	default:
		data = orderTemplateData(o)
	}

	req := notification.NewRequest(o.CustomerEmail, a.Notification, data)
	orderID := o.ID
	req.RelatedOrderID = &orderID

	if a.Kind == order.ActionScheduleNotify {
		if delay <= 0 {
			delay = a.Delay
		}
		at := now.Add(delay)
		req.ScheduledAt = &at
		req.Priority = notification.PriorityLow
	}
	return req
}

// buildLoyaltyNotification builds the loyalty_update request sent after an accrual
func buildLoyaltyNotification(o *order.Order, accrual *loyalty.Accrual) notification.Request {
	req := notification.NewRequest(o.CustomerEmail, notification.TypeLoyaltyUpdate, map[string]any{
		"orderNumber":  o.OrderNumber,
		"customerName": o.DisplayName(),
		"pointsEarned": accrual.PointsEarned,
		"totalPoints":  accrual.NewTotalPoints,
	})
	orderID := o.ID
	req.RelatedOrderID = &orderID
	return req
}
