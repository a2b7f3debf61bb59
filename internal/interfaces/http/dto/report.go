package dto

import (
	"time"

	"github.com/fashun/backend/internal/application/lifecycle"
	"github.com/fashun/backend/internal/domain/notification"
)

// ReportResponse is the JSON view of a lifecycle report
type ReportResponse struct {
	EventID     string          `json:"event_id"`
	EventKind   string          `json:"event_kind"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	DurationMS  int64           `json:"duration_ms"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Skipped     int             `json:"skipped"`
	Entries     []EntryResponse `json:"entries"`
}

// EntryResponse is the JSON view of one side effect
type EntryResponse struct {
	Action       string                `json:"action"`
	Outcome      string                `json:"outcome"`
	Reason       string                `json:"reason,omitempty"`
	Notification *NotificationResponse `json:"notification,omitempty"`
	Adjustments  []AdjustmentResponse  `json:"adjustments,omitempty"`
	Accrual      *AccrualResponse      `json:"accrual,omitempty"`
}

// NotificationResponse summarises a request handed to the gateway
type NotificationResponse struct {
	Type        string     `json:"type"`
	Recipient   string     `json:"recipient"`
	Priority    string     `json:"priority"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// AdjustmentResponse is one inventory line
type AdjustmentResponse struct {
	ProductID string `json:"product_id"`
	Direction string `json:"direction"`
	Requested int64  `json:"requested"`
	Previous  int64  `json:"previous"`
	Current   int64  `json:"current"`
	State     string `json:"state"`
	Shortfall int64  `json:"shortfall,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AccrualResponse is a completed loyalty accrual
type AccrualResponse struct {
	CustomerID     string `json:"customer_id"`
	PointsEarned   int64  `json:"points_earned"`
	NewTotalPoints int64  `json:"new_total_points"`
	LifetimeSpent  string `json:"lifetime_spent"`
}

// NewReportResponse converts a lifecycle report to its JSON view
func NewReportResponse(r *lifecycle.Report) ReportResponse {
	resp := ReportResponse{
		EventID:     r.EventID.String(),
		EventKind:   string(r.EventKind),
		OrderID:     r.OrderID.String(),
		OrderNumber: r.OrderNumber,
		DurationMS:  r.Duration.Milliseconds(),
		Succeeded:   r.Count(lifecycle.OutcomeSucceeded),
		Failed:      r.Count(lifecycle.OutcomeFailed),
		Skipped:     r.Count(lifecycle.OutcomeSkipped),
		Entries:     make([]EntryResponse, 0, len(r.Entries)),
	}

	for _, e := range r.Entries {
		entry := EntryResponse{
			Action:  e.Action,
			Outcome: string(e.Outcome),
			Reason:  e.Reason,
		}
		if e.Request != nil {
			entry.Notification = newNotificationResponse(*e.Request)
		}
		for _, a := range e.Adjustments {
			entry.Adjustments = append(entry.Adjustments, AdjustmentResponse{
				ProductID: a.ProductID.String(),
				Direction: string(a.Direction),
				Requested: a.Requested,
				Previous:  a.Previous,
				Current:   a.Current,
				State:     string(a.State),
				Shortfall: a.Shortfall,
				Reason:    a.Reason,
			})
		}
		if e.Accrual != nil {
			entry.Accrual = &AccrualResponse{
				CustomerID:     e.Accrual.CustomerID.String(),
				PointsEarned:   e.Accrual.PointsEarned,
				NewTotalPoints: e.Accrual.NewTotalPoints,
				LifetimeSpent:  e.Accrual.LifetimeSpent.String(),
			}
		}
		resp.Entries = append(resp.Entries, entry)
	}
	return resp
}

func newNotificationResponse(req notification.Request) *NotificationResponse {
	return &NotificationResponse{
		Type:        string(req.Type),
		Recipient:   req.Recipient,
		Priority:    string(req.Priority),
		ScheduledAt: req.ScheduledAt,
	}
}
