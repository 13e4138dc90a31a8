package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/database"
)

const migrationsDir = "db/migrations/sql"

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

var dialectByDriver = map[string]string{
	"postgres": "postgres",
	"pg":       "postgres",
	"mysql":    "mysql",
	"sqlite":   "sqlite3",
	"sqlite3":  "sqlite3",
}

// Migrator runs goose migrations against the writer connection. Schema
// changes always target the primary; replicas catch up on their own.
type Migrator struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a goose-backed migrator for the configured driver.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, ok := dialectByDriver[cfg.Database.Driver]
	if !ok {
		return nil, fmt.Errorf("no goose dialect for driver %q", cfg.Database.Driver)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return nil, err
	}
	return &Migrator{db: conns.Writer, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	err := goose.UpContext(ctx, m.db.DB, migrationsDir)
	if m.settled(err, "no migrations to apply") {
		return nil
	}
	if err != nil {
		return err
	}
	m.logger.Info("migrations applied")
	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls
// everything back.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		err := goose.DownToContext(ctx, m.db.DB, migrationsDir, 0)
		if m.settled(err, "no migrations to rollback") {
			return nil
		}
		if err != nil {
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))
		return nil
	}

	if steps <= 0 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		err := goose.DownContext(ctx, m.db.DB, migrationsDir)
		if m.settled(err, "no migrations to rollback") {
			return nil
		}
		if err != nil {
			return err
		}
	}
	m.logger.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}

// Status prints the applied/pending state of each migration.
func (m *Migrator) Status(ctx context.Context) error {
	return goose.StatusContext(ctx, m.db.DB, migrationsDir)
}

// settled reports whether err means there was simply nothing to do,
// logging the given note when so.
func (m *Migrator) settled(err error, note string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) ||
		strings.Contains(err.Error(), "no migrations") {
		m.logger.Info(note)
		return true
	}
	return false
}
