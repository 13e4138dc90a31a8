package order

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/swiftcart/swiftcart/internal/notifier"
	"github.com/swiftcart/swiftcart/internal/presentation/http/response"
	service "github.com/swiftcart/swiftcart/internal/service/status"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/swiftcart/swiftcart/transport/http/order")

// accountHeader carries the authenticated account id, injected by the
// session layer in front of this service.
const accountHeader = "X-Account-ID"

// Handler exposes order status reads: poll, list, and an SSE stream that
// pushes the reconciler's transition the moment it commits.
type Handler struct {
	svc *service.Service
	hub *notifier.Hub
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, hub *notifier.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:code", h.getByCode)
	g.GET("/:code/events", h.stream)
}

func accountFrom(c echo.Context) int64 {
	id, err := strconv.ParseInt(c.Request().Header.Get(accountHeader), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	accountID := accountFrom(c)
	if accountID <= 0 {
		return b.WithError(errorbank.BadRequest("account is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx, accountID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(orders).WithMeta("count", len(orders)).Build()
}

func (h *Handler) getByCode(c echo.Context) error {
	b := response.New(c)

	code := c.Param("code")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByCode", trace.WithAttributes(
		attribute.String("order.code", code),
	))
	defer span.End()

	order, err := h.svc.Get(ctx, code, accountFrom(c))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(order).Build()
}

// stream pushes status updates for one order over server-sent events. The
// initial event carries the current committed state so a client that
// connects after reconciliation still converges.
func (h *Handler) stream(c echo.Context) error {
	code := c.Param("code")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.stream", trace.WithAttributes(
		attribute.String("order.code", code),
	))
	defer span.End()

	// Subscribe before reading the snapshot. A transition committed after
	// the read but before the subscription would be in neither, and the
	// client would sit on a stale state until reconnect. The reconciler
	// invalidates the cache before it publishes, so a post-subscribe read
	// sees the committed state.
	updates, cancel := h.hub.Subscribe(code)
	defer cancel()

	current, err := h.svc.Get(ctx, code, accountFrom(c))
	if err != nil {
		return response.New(c).WithError(err).Build()
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, notifier.StatusUpdate{
		OrderCode:     current.Code,
		Status:        current.Status,
		PaymentMethod: current.PaymentMethod,
		PaidAt:        current.PaidAt,
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEvent(res, update); err != nil {
				return err
			}
		}
	}
}

func writeEvent(res *echo.Response, update notifier.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: status\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
