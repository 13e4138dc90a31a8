package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the internal three-state order lifecycle.
type OrderStatus string

const (
	StatusPending OrderStatus = "pending"
	StatusSuccess OrderStatus = "success"
	StatusFailed  OrderStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s OrderStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Order is a buyer's priced purchase intent, tracked through payment to a
// terminal outcome. Code is the join key between internal state and the
// payment gateway's notifications; TotalAmount is fixed at creation from
// catalog prices and never recomputed.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID               int64       `bun:",pk,autoincrement"`
	Code             string      `bun:"code"`
	AccountID        int64       `bun:"account_id"`
	TotalAmount      int64       `bun:"total_amount"`
	Status           OrderStatus `bun:"status"`
	PaymentMethod    string      `bun:"payment_method,nullzero"`
	GatewayReference string      `bun:"gateway_reference,nullzero"`
	PaidAt           *time.Time  `bun:"paid_at,nullzero"`
	CreatedAt        time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`

	Lines []OrderLine `bun:"rel:has-many,join:id=order_id"`
}

// OrderLine is one quantity-fixed product entry within an order.
// PriceAtPurchase snapshots the catalog price at checkout time; the
// referenced product may later change or disappear without affecting it.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID              int64     `bun:",pk,autoincrement"`
	OrderID         int64     `bun:"order_id"`
	LineNo          int       `bun:"line_no"`
	ProductID       int64     `bun:"product_id"`
	ProductName     string    `bun:"product_name"`
	Quantity        int       `bun:"quantity"`
	PriceAtPurchase int64     `bun:"price_at_purchase"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
