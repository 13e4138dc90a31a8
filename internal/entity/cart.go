package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// CartItem is one product entry in an account's active cart. Each account
// has a single cart, so items are keyed by account directly.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	ID        int64     `bun:",pk,autoincrement"`
	AccountID int64     `bun:"account_id"`
	ProductID int64     `bun:"product_id"`
	Quantity  int       `bun:"quantity"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
