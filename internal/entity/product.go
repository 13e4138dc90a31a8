package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog item. Price is expressed in currency minor units
// and is the only price the checkout pipeline trusts.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          int64     `bun:",pk,autoincrement"`
	Name        string    `bun:"name"`
	Price       int64     `bun:"price"`
	Purchasable bool      `bun:"purchasable"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero"`
}
