package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/entity"
	"github.com/swiftcart/swiftcart/internal/gateway"
	service "github.com/swiftcart/swiftcart/internal/service/checkout"
)

type fakeOracle struct {
	products map[int64]entity.Product
}

func (f *fakeOracle) ResolveForPurchase(ctx context.Context, ids []int64) (map[int64]entity.Product, error) {
	out := make(map[int64]entity.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	created *entity.Order
}

func (f *fakeOrderStore) CreateWithLines(ctx context.Context, order *entity.Order, lines []entity.OrderLine) error {
	order.ID = 1
	f.created = order
	return nil
}

type fakeCart struct{}

func (fakeCart) RemoveItems(ctx context.Context, accountID int64, productIDs []int64) error {
	return nil
}

type fakeSessions struct{}

func (fakeSessions) CreateSession(ctx context.Context, req gateway.SessionRequest) (gateway.Session, error) {
	return gateway.Session{Token: "tok-abc", RedirectURL: "https://pay.example/redirect/tok-abc"}, nil
}

func newTestHandler() (*Handler, *fakeOrderStore) {
	store := &fakeOrderStore{}
	svc := service.NewService(service.Params{
		Oracle: &fakeOracle{products: map[int64]entity.Product{
			7: {ID: 7, Name: "E-Book Bundle", Price: 150000, Purchasable: true},
		}},
		Orders:   store,
		Carts:    fakeCart{},
		Sessions: fakeSessions{},
		Config:   config.Config{},
		Logger:   zap.NewNop(),
	})
	return NewHandler(svc), store
}

func submit(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.checkout(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestCheckoutCreatesOrder(t *testing.T) {
	h, store := newTestHandler()

	body := `{"account_id":42,"items":[{"product_reference":7,"quantity":2}],"buyer":{"name":"Ana","email":"ana@example.com"}}`
	rec := submit(t, h, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool                 `json:"success"`
		Data    dto.CheckoutResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Error("success = false")
	}
	if envelope.Data.PaymentToken != "tok-abc" {
		t.Errorf("payment_token = %q", envelope.Data.PaymentToken)
	}
	if envelope.Data.OrderCode == "" {
		t.Error("order_code missing from response")
	}
	if store.created == nil || store.created.TotalAmount != 300000 {
		t.Errorf("persisted order = %+v", store.created)
	}
}

func TestCheckoutRejectsEmptyItems(t *testing.T) {
	h, store := newTestHandler()

	rec := submit(t, h, `{"account_id":42,"items":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.created != nil {
		t.Error("empty checkout persisted an order")
	}
}

func TestCheckoutRejectsUnknownProduct(t *testing.T) {
	h, _ := newTestHandler()

	rec := submit(t, h, `{"account_id":42,"items":[{"product_reference":999,"quantity":1}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var envelope struct {
		Error struct {
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := envelope.Error.Details["product_reference"]; !ok {
		t.Errorf("details = %v, want offending product_reference", envelope.Error.Details)
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	h, _ := newTestHandler()

	rec := submit(t, h, `{"account_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
