package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
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
	"github.com/swiftcart/swiftcart/internal/event"
	"github.com/swiftcart/swiftcart/internal/gateway"
	"github.com/swiftcart/swiftcart/internal/messaging"
	"github.com/swiftcart/swiftcart/internal/notifier"
	orderrepo "github.com/swiftcart/swiftcart/internal/repository/order"
	"github.com/swiftcart/swiftcart/internal/service/status"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/swiftcart/swiftcart/service/reconcile")

// providerOutcomes is the closed mapping from the provider's status
// vocabulary to the internal lifecycle. It is consulted exactly once, at
// this boundary; nothing downstream sees provider strings. Statuses absent
// from the map (intermediate states like "authorized") leave the order
// pending.
var providerOutcomes = map[string]entity.OrderStatus{
	"settled":   entity.StatusSuccess,
	"captured":  entity.StatusSuccess,
	"expired":   entity.StatusFailed,
	"cancelled": entity.StatusFailed,
	"denied":    entity.StatusFailed,
}

// OrderStore exposes the reads and the conditional write reconciliation
// needs. ApplyTransition must guarantee that of any number of concurrent
// attempts for one code, exactly one observes applied=true.
type OrderStore interface {
	GetByCode(ctx context.Context, code string) (*entity.Order, error)
	ApplyTransition(ctx context.Context, code string, t orderrepo.Transition) (bool, error)
}

// Result reports what a notification did to the order. Applied is false
// for every no-op replay or intermediate status.
type Result struct {
	OrderCode string
	Status    entity.OrderStatus
	Applied   bool
}

// Service applies gateway webhook notifications to orders: authenticate,
// map vocabulary, transition at most once, never downgrade a terminal
// state. Safe under duplicated and reordered delivery.
type Service struct {
	orders    OrderStore
	cache     cache.Store
	hub       *notifier.Hub
	publisher messaging.Client
	logger    *zap.Logger
	serverKey string
	messaging messagingConfig
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    OrderStore
	Cache     cache.Store
	Hub       *notifier.Hub
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		cache:     p.Cache,
		hub:       p.Hub,
		publisher: p.Publisher,
		logger:    p.Logger,
		serverKey: p.Config.Gateway.ServerKey,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Reconcile authenticates and applies one webhook notification.
func (s *Service) Reconcile(ctx context.Context, n dto.WebhookNotification) (Result, error) {
	ctx, span := serviceTracer.Start(ctx, "ReconcileService.Reconcile", trace.WithAttributes(
		attribute.String("order.code", n.OrderCode),
		attribute.String("provider.status", n.ProviderStatus),
	))
	defer span.End()

	if n.OrderCode == "" || n.ProviderStatus == "" {
		return Result{}, errorbank.BadRequest("order_code and provider_status are required")
	}

	if !gateway.VerifyIntegrityToken(n.OrderCode, n.ProviderStatus, n.Amount, s.serverKey, n.IntegrityToken) {
		// Possible forgery: log the claim, reject, change nothing.
		s.logger.Warn("webhook integrity check failed",
			zap.String("code", n.OrderCode),
			zap.String("provider_status", n.ProviderStatus),
			zap.Int64("amount", n.Amount),
		)
		span.SetStatus(codes.Error, "invalid signature")
		return Result{}, errorbank.BadRequest("invalid integrity token")
	}

	order, err := s.orders.GetByCode(ctx, n.OrderCode)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			// This endpoint reconciles, it never originates orders.
			s.logger.Warn("webhook for unknown order", zap.String("code", n.OrderCode))
			return Result{}, errorbank.NotFound("unknown order")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return Result{}, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if order.Status.Terminal() {
		// Replay or late contradictory delivery: idempotent no-op, and a
		// success response so the provider stops retrying.
		return Result{OrderCode: order.Code, Status: order.Status}, nil
	}

	target, decisive := providerOutcomes[strings.ToLower(strings.TrimSpace(n.ProviderStatus))]
	if !decisive {
		s.logger.Debug("intermediate provider status, order stays pending",
			zap.String("code", order.Code), zap.String("provider_status", n.ProviderStatus))
		return Result{OrderCode: order.Code, Status: order.Status}, nil
	}

	transition := orderrepo.Transition{
		To:               target,
		PaymentMethod:    n.PaymentMethod,
		GatewayReference: n.ProviderTransactionID,
	}
	if target == entity.StatusSuccess {
		paidAt := time.Now().UTC()
		if n.SettledAt != nil {
			paidAt = n.SettledAt.UTC()
		}
		transition.PaidAt = &paidAt
	}

	applied, err := s.orders.ApplyTransition(ctx, order.Code, transition)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return Result{}, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}
	if !applied {
		// Lost a race with a concurrent delivery; the winner's state stands.
		current, err := s.orders.GetByCode(ctx, order.Code)
		if err != nil {
			return Result{}, errorbank.Internal("failed to reload order", errorbank.WithCause(err))
		}
		return Result{OrderCode: current.Code, Status: current.Status}, nil
	}

	s.afterTransition(ctx, order, transition)
	return Result{OrderCode: order.Code, Status: target, Applied: true}, nil
}

// afterTransition runs the post-commit side effects: cache invalidation,
// viewer push, lifecycle event. All best effort.
func (s *Service) afterTransition(ctx context.Context, order *entity.Order, t orderrepo.Transition) {
	s.logger.Info("order reconciled",
		zap.String("code", order.Code),
		zap.String("status", string(t.To)),
		zap.String("payment_method", t.PaymentMethod),
	)

	if s.cache != nil {
		if err := s.cache.Delete(ctx, status.CacheKey(order.Code)); err != nil {
			s.logger.Warn("order cache invalidation failed", zap.String("code", order.Code), zap.Error(err))
		}
	}

	if s.hub != nil {
		s.hub.Publish(notifier.StatusUpdate{
			OrderCode:     order.Code,
			Status:        string(t.To),
			PaymentMethod: t.PaymentMethod,
			PaidAt:        t.PaidAt,
		})
	}

	s.publishStatusChanged(ctx, order, t)
}

func (s *Service) publishStatusChanged(ctx context.Context, order *entity.Order, t orderrepo.Transition) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	evt := event.OrderEvent{
		Type:          event.TypeOrderStatusChanged,
		OrderCode:     order.Code,
		AccountID:     order.AccountID,
		Status:        string(t.To),
		TotalAmount:   order.TotalAmount,
		PaymentMethod: t.PaymentMethod,
		PaidAt:        t.PaidAt,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("marshal status changed", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.Code), payload); err != nil {
		s.logger.Error("publish status changed", zap.String("code", order.Code), zap.Error(err))
	}
}
