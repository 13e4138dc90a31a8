package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/entity"
	"github.com/swiftcart/swiftcart/internal/event"
	"github.com/swiftcart/swiftcart/internal/gateway"
	"github.com/swiftcart/swiftcart/internal/messaging"
	orderrepo "github.com/swiftcart/swiftcart/internal/repository/order"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/swiftcart/swiftcart/service/checkout")

// codeAttempts bounds retries when a generated order code collides with
// the unique index.
const codeAttempts = 3

// cartCleanupTimeout bounds the fire-and-forget cart cleanup, which runs
// detached from the request context.
const cartCleanupTimeout = 5 * time.Second

// PriceOracle resolves current authoritative price and availability for a
// set of products. Ids absent from the result are invalid for purchase.
type PriceOracle interface {
	ResolveForPurchase(ctx context.Context, ids []int64) (map[int64]entity.Product, error)
}

// OrderStore persists an order together with all of its lines, atomically.
type OrderStore interface {
	CreateWithLines(ctx context.Context, order *entity.Order, lines []entity.OrderLine) error
}

// CartCleaner removes purchased products from an account's cart.
type CartCleaner interface {
	RemoveItems(ctx context.Context, accountID int64, productIDs []int64) error
}

// Service turns a client-submitted cart proposal into a priced, persisted
// order with an open payment session. Client-supplied data never reaches
// pricing: every amount comes from the oracle.
type Service struct {
	oracle    PriceOracle
	orders    OrderStore
	carts     CartCleaner
	sessions  gateway.SessionCreator
	publisher messaging.Client
	logger    *zap.Logger
	clientKey string
	messaging messagingConfig
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Oracle    PriceOracle
	Orders    OrderStore
	Carts     CartCleaner
	Sessions  gateway.SessionCreator
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		oracle:    p.Oracle,
		orders:    p.Orders,
		carts:     p.Carts,
		sessions:  p.Sessions,
		publisher: p.Publisher,
		logger:    p.Logger,
		clientKey: p.Config.Gateway.ClientKey,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Checkout runs the full intake pipeline for one submission.
func (s *Service) Checkout(ctx context.Context, req dto.CheckoutRequest) (dto.CheckoutResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Checkout", trace.WithAttributes(
		attribute.Int("checkout.items", len(req.Items)),
	))
	defer span.End()

	if req.AccountID <= 0 {
		return dto.CheckoutResponse{}, errorbank.BadRequest("account is required")
	}
	if len(req.Items) == 0 {
		return dto.CheckoutResponse{}, errorbank.BadRequest("checkout requires at least one item")
	}

	ids := make([]int64, 0, len(req.Items))
	quantities := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return dto.CheckoutResponse{}, errorbank.BadRequest("items require a product reference and a positive quantity")
		}
		if _, seen := quantities[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	resolved, err := s.oracle.ResolveForPurchase(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "oracle error")
		return dto.CheckoutResponse{}, errorbank.Internal("failed to resolve products", errorbank.WithCause(err))
	}

	// All-or-nothing: one unavailable product rejects the whole checkout.
	lines := make([]entity.OrderLine, 0, len(ids))
	var total int64
	for _, id := range ids {
		product, ok := resolved[id]
		if !ok {
			return dto.CheckoutResponse{}, errorbank.Unprocessable(
				fmt.Sprintf("product %d is not available for purchase", id),
				errorbank.WithDetail("product_reference", id),
			)
		}
		qty := quantities[id]
		lines = append(lines, entity.OrderLine{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        qty,
			PriceAtPurchase: product.Price,
		})
		total += product.Price * int64(qty)
	}

	order, err := s.persistOrder(ctx, req.AccountID, total, lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist error")
		return dto.CheckoutResponse{}, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.String("order.code", order.Code))

	session, err := s.sessions.CreateSession(ctx, gateway.SessionRequest{
		OrderCode: order.Code,
		Amount:    order.TotalAmount,
		Buyer:     req.Buyer,
		Items:     toSessionItems(lines),
	})
	if err != nil {
		// The order stays pending: if the provider actually created the
		// session, its webhook will still reconcile it.
		s.logger.Error("payment session creation failed",
			zap.String("code", order.Code), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		return dto.CheckoutResponse{}, errorbank.Unavailable("payment gateway is unavailable, please retry",
			errorbank.WithCause(err), errorbank.WithDetail("order_code", order.Code))
	}

	s.cleanupCart(req.AccountID, ids, order.Code)
	s.publishCreated(ctx, order)

	return dto.CheckoutResponse{
		PaymentToken: session.Token,
		RedirectURL:  session.RedirectURL,
		OrderCode:    order.Code,
		ClientKey:    s.clientKey,
	}, nil
}

// persistOrder writes the order and its lines, regenerating the code on a
// unique-index collision.
func (s *Service) persistOrder(ctx context.Context, accountID, total int64, lines []entity.OrderLine) (*entity.Order, error) {
	var lastErr error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		order := &entity.Order{
			Code:        newOrderCode(),
			AccountID:   accountID,
			TotalAmount: total,
			Status:      entity.StatusPending,
			CreatedAt:   time.Now().UTC(),
		}
		err := s.orders.CreateWithLines(ctx, order, lines)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, orderrepo.ErrDuplicateCode) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("order code collision, regenerating", zap.String("code", order.Code))
	}
	return nil, lastErr
}

// cleanupCart removes the purchased products from the buyer's cart.
// Best effort: the order is already committed, so failure is only logged.
func (s *Service) cleanupCart(accountID int64, productIDs []int64, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cartCleanupTimeout)
		defer cancel()
		if err := s.carts.RemoveItems(ctx, accountID, productIDs); err != nil {
			s.logger.Warn("cart cleanup failed after checkout",
				zap.String("code", code), zap.Error(err))
		}
	}()
}

func (s *Service) publishCreated(ctx context.Context, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	evt := event.OrderEvent{
		Type:        event.TypeOrderCreated,
		OrderCode:   order.Code,
		AccountID:   order.AccountID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.Code), payload); err != nil {
		s.logger.Error("publish order created", zap.String("code", order.Code), zap.Error(err))
	}
}

func toSessionItems(lines []entity.OrderLine) []gateway.SessionItem {
	items := make([]gateway.SessionItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, gateway.SessionItem{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			Price:     line.PriceAtPurchase,
			Quantity:  line.Quantity,
		})
	}
	return items
}

// newOrderCode produces a timestamped code with a random suffix. The
// orders.code unique index is the actual uniqueness guarantee; the suffix
// just makes collisions rare enough that retrying is cheap.
func newOrderCode() string {
	var suffix [2]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMicro(), hex.EncodeToString(suffix[:]))
}
