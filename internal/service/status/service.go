package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/cache"
	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/entity"
	orderrepo "github.com/swiftcart/swiftcart/internal/repository/order"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/swiftcart/swiftcart/service/status")

// CacheKey names the cached order snapshot for one code. The reconciler
// deletes this key when it commits a transition so polls never serve a
// stale terminal state past the cache TTL.
func CacheKey(code string) string {
	return fmt.Sprintf("orders:code:%s", code)
}

// OrderReader exposes the owner-scoped reads the status surface needs.
type OrderReader interface {
	GetByCodeForAccount(ctx context.Context, code string, accountID int64) (*entity.Order, error)
	ListByAccount(ctx context.Context, accountID int64) ([]entity.Order, error)
}

// Service answers "what is my order's state right now" for the owning
// account. Foreign orders are indistinguishable from missing ones.
type Service struct {
	orders   OrderReader
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders OrderReader
	Cache  cache.Store
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:   p.Orders,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
	}
}

// Get returns the current state of one order for its owning account.
func (s *Service) Get(ctx context.Context, code string, accountID int64) (dto.OrderStatusResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "StatusService.Get", trace.WithAttributes(
		attribute.String("order.code", code),
	))
	defer span.End()

	if code == "" || accountID <= 0 {
		return dto.OrderStatusResponse{}, errorbank.BadRequest("order code and account are required")
	}

	if order, err := s.getFromCache(ctx, code); err == nil {
		// Ownership is re-checked on every hit; the cache is keyed by
		// code alone.
		if order.AccountID != accountID {
			return dto.OrderStatusResponse{}, errorbank.NotFound("order not found")
		}
		return toStatusResponse(order), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("order cache read failed", zap.String("code", code), zap.Error(err))
	}

	order, err := s.orders.GetByCodeForAccount(ctx, code, accountID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.OrderStatusResponse{}, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderStatusResponse{}, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return toStatusResponse(order), nil
}

// List returns all of an account's orders, newest first.
func (s *Service) List(ctx context.Context, accountID int64) ([]dto.OrderStatusResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "StatusService.List")
	defer span.End()

	if accountID <= 0 {
		return nil, errorbank.BadRequest("account is required")
	}

	orders, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	out := make([]dto.OrderStatusResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toStatusResponse(&orders[i]))
	}
	return out, nil
}

func (s *Service) getFromCache(ctx context.Context, code string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, CacheKey(code))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	// Only terminal snapshots are cached. A pending snapshot written here
	// could race the reconciler's commit-then-invalidate and pin the stale
	// state for the full TTL; terminal orders never change, so their
	// entries cannot go stale.
	if !order.Status.Terminal() {
		return
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKey(order.Code), bytes, s.cacheTTL); err != nil {
		s.logger.Warn("order cache write failed", zap.String("code", order.Code), zap.Error(err))
	}
}

func toStatusResponse(order *entity.Order) dto.OrderStatusResponse {
	lines := make([]dto.OrderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, dto.OrderLineView{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase,
		})
	}
	return dto.OrderStatusResponse{
		Code:          order.Code,
		Status:        string(order.Status),
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
		Lines:         lines,
	}
}
