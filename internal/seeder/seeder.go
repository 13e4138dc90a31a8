package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/database"
	"github.com/swiftcart/swiftcart/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Products seeds example catalog entries if they are missing.
func (s *Seeder) Products(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Product{
		{Name: "E-Book: Practical Gardening", Price: 100000, Purchasable: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Icon Pack Vol. 1", Price: 45000, Purchasable: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Video Course: Intro to Drawing", Price: 250000, Purchasable: true, CreatedAt: now, UpdatedAt: now},
		{Name: "Legacy Template Bundle", Price: 75000, Purchasable: false, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		product := sample
		// Ignore() renders per dialect: INSERT IGNORE on MySQL,
		// ON CONFLICT DO NOTHING on Postgres and SQLite.
		_, err := s.db.NewInsert().Model(&product).
			Ignore().
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}
