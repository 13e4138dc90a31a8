package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/swiftcart/swiftcart/internal/database"
	"github.com/swiftcart/swiftcart/internal/entity"
)

var repoTracer = otel.Tracer("github.com/swiftcart/swiftcart/repository/order")

// ErrNotFound is returned when no order matches the lookup.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateCode is returned when an insert collides with an existing
// order code; callers regenerate the code and retry.
var ErrDuplicateCode = errors.New("order code already exists")

// Transition describes a terminal state change applied by reconciliation.
type Transition struct {
	To               entity.OrderStatus
	PaymentMethod    string
	GatewayReference string
	PaidAt           *time.Time
}

// Repository encapsulates read/write access for orders and their lines.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// CreateWithLines persists an order and all of its lines in one
// transaction: either everything exists afterwards or nothing does.
func (r *Repository) CreateWithLines(ctx context.Context, order *entity.Order, lines []entity.OrderLine) error {
	if order == nil {
		return errors.New("nil order")
	}
	if len(lines) == 0 {
		return errors.New("order has no lines")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateWithLines", trace.WithAttributes(
		attribute.String("order.code", order.Code),
		attribute.Int("order.lines", len(lines)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
			lines[i].LineNo = i
		}
		_, err := tx.NewInsert().Model(&lines).Exec(ctx)
		return err
	})
	if err != nil {
		if isDuplicateKey(err) {
			span.SetStatus(codes.Error, "duplicate code")
			return ErrDuplicateCode
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// GetByCode fetches an order with its lines, regardless of owner. Used by
// reconciliation, which is keyed purely by code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Lines").
		Where("code = ?", code).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// GetByCodeForAccount fetches an order only when the account owns it.
// A foreign order yields ErrNotFound so callers cannot probe existence.
func (r *Repository) GetByCodeForAccount(ctx context.Context, code string, accountID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByCodeForAccount", trace.WithAttributes(
		attribute.String("order.code", code),
	))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Lines").
		Where("code = ?", code).
		Where("account_id = ?", accountID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListByAccount returns an account's orders, newest first.
func (r *Repository) ListByAccount(ctx context.Context, accountID int64) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByAccount")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Lines").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ApplyTransition performs the reconciliation write: a single conditional
// update guarded by the current pending status. Exactly one of any number
// of concurrent attempts for the same code observes applied=true; the rest
// see applied=false and must re-read to distinguish stale from unknown.
func (r *Repository) ApplyTransition(ctx context.Context, code string, t Transition) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ApplyTransition", trace.WithAttributes(
		attribute.String("order.code", code),
		attribute.String("order.status", string(t.To)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", t.To).
		Set("payment_method = ?", t.PaymentMethod).
		Set("gateway_reference = ?", t.GatewayReference).
		Set("paid_at = ?", t.PaidAt).
		Where("code = ?", code).
		Where("status = ?", entity.StatusPending).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// isDuplicateKey detects unique-constraint violations for the supported
// dialects (SQLSTATE 23505 for postgres, error 1062 for mysql).
func isDuplicateKey(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return false
}
