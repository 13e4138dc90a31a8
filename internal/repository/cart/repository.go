package cart

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/swiftcart/swiftcart/internal/database"
	"github.com/swiftcart/swiftcart/internal/entity"
)

var repoTracer = otel.Tracer("github.com/swiftcart/swiftcart/repository/cart")

// Repository mutates an account's active cart.
type Repository struct {
	writer *bun.DB
}

// NewRepository wires the cart repository against the write connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer}
}

// RemoveItems deletes the account's cart entries for the given products.
// Checkout calls this after the order is committed; a failure here is the
// caller's to log, never to surface.
func (r *Repository) RemoveItems(ctx context.Context, accountID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "CartRepository.RemoveItems")
	span.SetAttributes(attribute.Int("cart.products", len(productIDs)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.CartItem)(nil)).
		Where("account_id = ?", accountID).
		Where("product_id IN (?)", bun.In(productIDs)).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}
