package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
)

var clientTracer = otel.Tracer("github.com/swiftcart/swiftcart/gateway")

// SessionItem is one priced line forwarded to the payment page.
type SessionItem struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// SessionRequest asks the provider to open a hosted payment session for an
// order. OrderCode doubles as the provider's own order identifier so that
// webhook notifications can be joined back to the order.
type SessionRequest struct {
	OrderCode string
	Amount    int64
	Buyer     dto.Buyer
	Items     []SessionItem
}

// Session is the provider's handle for a newly created payment session.
type Session struct {
	Token       string
	RedirectURL string
}

// SessionCreator opens payment sessions with the external provider.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

// Client talks to the provider's session API over HTTP.
type Client struct {
	baseURL   string
	serverKey string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient builds the HTTP-backed session client. The request timeout is
// the checkout pipeline's fail-closed bound for gateway calls.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		serverKey: cfg.Gateway.ServerKey,
		http:      &http.Client{Timeout: cfg.Gateway.Timeout},
		logger:    logger,
	}
}

type sessionPayload struct {
	Transaction struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	Items    []SessionItem `json:"item_details"`
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer_details"`
}

type sessionResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// CreateSession submits the order to the provider and returns the
// client-facing payment token.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := clientTracer.Start(ctx, "Gateway.CreateSession", trace.WithAttributes(
		attribute.String("order.code", req.OrderCode),
	))
	defer span.End()

	var payload sessionPayload
	payload.Transaction.OrderID = req.OrderCode
	payload.Transaction.GrossAmount = req.Amount
	payload.Items = req.Items
	payload.Customer.Name = req.Buyer.Name
	payload.Customer.Email = req.Buyer.Email
	payload.Customer.Phone = req.Buyer.Phone

	body, err := json.Marshal(payload)
	if err != nil {
		return Session{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.serverKey, "")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Session{}, fmt.Errorf("gateway session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused; body content is not
		// logged because error pages may echo request credentials.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		span.SetStatus(codes.Error, "unexpected status")
		return Session{}, fmt.Errorf("gateway session request: unexpected status %d", resp.StatusCode)
	}

	var result sessionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("gateway session response: %w", err)
	}
	if result.Token == "" {
		return Session{}, fmt.Errorf("gateway session response: empty token")
	}

	return Session{Token: result.Token, RedirectURL: result.RedirectURL}, nil
}
