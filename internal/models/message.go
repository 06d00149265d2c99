package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedMessage is published to baristas after a successful commit
type OrderPlacedMessage struct {
	OrderID       int64           `json:"order_id"`
	Attendant     string          `json:"attendant"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Items         []OrderLine     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// StatusUpdateMessage represents a status update notification
type StatusUpdateMessage struct {
	OrderID   int64       `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
}

// ReadyEvent is the payload pushed to announcers. It carries no timestamp so
// repeated signals for one order produce identical payloads.
type ReadyEvent struct {
	OrderID int64 `json:"order_id"`
}

// NewOrderPlacedMessage builds the barista message for a committed order
func NewOrderPlacedMessage(orderID int64, req CommitRequest, placedAt time.Time) *OrderPlacedMessage {
	items := make([]OrderLine, len(req.Lines))
	for i, l := range req.Lines {
		l.OrderID = orderID
		items[i] = l
	}
	return &OrderPlacedMessage{
		OrderID:       orderID,
		Attendant:     req.Attendant,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		TotalAmount:   req.Total,
		PlacedAt:      placedAt.UTC(),
	}
}

// NewStatusUpdateMessage creates a StatusUpdateMessage for order status changes
func NewStatusUpdateMessage(orderID int64, oldStatus, newStatus OrderStatus, changedBy string) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}

// PrepTime estimates how long a barista needs for an order.
func PrepTime(cups int) time.Duration {
	if cups < 1 {
		cups = 1
	}
	return 4*time.Second + time.Duration(cups-1)*2*time.Second
}

// GenerateRoutingKey generates a routing key for order placed messages
func GenerateRoutingKey(method PaymentMethod) string {
	return fmt.Sprintf("barista.%s", method)
}
