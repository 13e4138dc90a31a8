package webhook

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/presentation/http/response"
	service "github.com/swiftcart/swiftcart/internal/service/reconcile"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/swiftcart/swiftcart/transport/http/webhook")

// Handler receives the payment gateway's asynchronous notifications.
// Responses follow the provider's retry contract: 2xx acknowledges
// (including no-op replays), 4xx rejects permanently, 5xx asks for a
// redelivery.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a webhook Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/payments/notifications", h.notify)
}

func (h *Handler) notify(c echo.Context) error {
	b := response.New(c)

	var payload dto.WebhookNotification
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "webhook.notify", trace.WithAttributes(
		attribute.String("order.code", payload.OrderCode),
	))
	defer span.End()

	result, err := h.svc.Reconcile(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusOK).WithData(map[string]any{
		"order_code": result.OrderCode,
		"status":     result.Status,
		"applied":    result.Applied,
	}).Build()
}
