// Package catalog is the price oracle: the authoritative, read-only source
// of current product price and availability consulted at checkout time.
package catalog

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/swiftcart/swiftcart/internal/database"
	"github.com/swiftcart/swiftcart/internal/entity"
)

var repoTracer = otel.Tracer("github.com/swiftcart/swiftcart/repository/catalog")

// Repository performs batch price/availability lookups.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires the catalog lookup against the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// ResolveForPurchase returns, for each requested id that exists and is
// purchasable, its current catalog entry. Ids absent from the result are
// invalid for purchase. No side effects.
func (r *Repository) ResolveForPurchase(ctx context.Context, ids []int64) (map[int64]entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ResolveForPurchase", trace.WithAttributes(
		attribute.Int("catalog.requested", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		return map[int64]entity.Product{}, nil
	}

	var products []entity.Product
	err := r.reader.NewSelect().Model(&products).
		Where("id IN (?)", bun.In(ids)).
		Where("purchasable = ?", true).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}

	resolved := make(map[int64]entity.Product, len(products))
	for _, p := range products {
		resolved[p.ID] = p
	}
	return resolved, nil
}
