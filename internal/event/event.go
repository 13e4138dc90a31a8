// Package event defines the order lifecycle events published on the
// message bus and consumed by the fulfillment worker.
package event

import "time"

// Event types carried in OrderEvent.Type.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is emitted when an order is created or reaches a terminal
// status. Consumers must treat delivery as at-least-once.
type OrderEvent struct {
	Type          string     `json:"type"`
	OrderCode     string     `json:"order_code"`
	AccountID     int64      `json:"account_id"`
	Status        string     `json:"status"`
	TotalAmount   int64      `json:"total_amount"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
