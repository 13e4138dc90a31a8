package dto

import "time"

// OrderLineView is an order line as exposed to the owning account.
type OrderLineView struct {
	ProductID       int64  `json:"product_reference"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
}

// OrderStatusResponse is the poll/push view of a single order.
type OrderStatusResponse struct {
	Code          string          `json:"code"`
	Status        string          `json:"status"`
	TotalAmount   int64           `json:"total_amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []OrderLineView `json:"lines"`
}
