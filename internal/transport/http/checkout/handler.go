package checkout

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/presentation/http/response"
	service "github.com/swiftcart/swiftcart/internal/service/checkout"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/swiftcart/swiftcart/transport/http/checkout")

// Handler exposes the checkout intake endpoint.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a checkout Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/checkout", h.checkout)
}

func (h *Handler) checkout(c echo.Context) error {
	b := response.New(c)

	var payload dto.CheckoutRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.submit")
	defer span.End()

	result, err := h.svc.Checkout(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(result).Build()
}
