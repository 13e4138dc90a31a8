package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
	"github.com/swiftcart/swiftcart/internal/entity"
	"github.com/swiftcart/swiftcart/internal/gateway"
	"github.com/swiftcart/swiftcart/internal/messaging"
	orderrepo "github.com/swiftcart/swiftcart/internal/repository/order"
	"github.com/swiftcart/swiftcart/pkg/errorbank"
)

type fakeOracle struct {
	products map[int64]entity.Product
	err      error
}

func (f *fakeOracle) ResolveForPurchase(ctx context.Context, ids []int64) (map[int64]entity.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	resolved := make(map[int64]entity.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			resolved[id] = p
		}
	}
	return resolved, nil
}

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    []*entity.Order
	lines     [][]entity.OrderLine
	dupBudget int
	err       error
}

func (f *fakeOrderStore) CreateWithLines(ctx context.Context, order *entity.Order, lines []entity.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.dupBudget > 0 {
		f.dupBudget--
		return orderrepo.ErrDuplicateCode
	}
	order.ID = int64(len(f.orders) + 1)
	snapshot := *order
	f.orders = append(f.orders, &snapshot)
	f.lines = append(f.lines, append([]entity.OrderLine(nil), lines...))
	return nil
}

type fakeCart struct {
	mu     sync.Mutex
	called chan struct{}
	ids    []int64
	err    error
}

func newFakeCart() *fakeCart {
	return &fakeCart{called: make(chan struct{}, 1)}
}

func (f *fakeCart) RemoveItems(ctx context.Context, accountID int64, productIDs []int64) error {
	f.mu.Lock()
	f.ids = append([]int64(nil), productIDs...)
	f.mu.Unlock()
	select {
	case f.called <- struct{}{}:
	default:
	}
	return f.err
}

type fakeSessions struct {
	session gateway.Session
	err     error
	got     gateway.SessionRequest
}

func (f *fakeSessions) CreateSession(ctx context.Context, req gateway.SessionRequest) (gateway.Session, error) {
	f.got = req
	if f.err != nil {
		return gateway.Session{}, f.err
	}
	return f.session, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, append([]byte(nil), value...))
	return nil
}

func (f *fakePublisher) Consume(ctx context.Context, handler messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakePublisher) Topic() string { return "orders.lifecycle" }

type fixture struct {
	svc      *Service
	oracle   *fakeOracle
	store    *fakeOrderStore
	cart     *fakeCart
	sessions *fakeSessions
	pub      *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		oracle: &fakeOracle{products: map[int64]entity.Product{
			7: {ID: 7, Name: "E-Book", Price: 100000, Purchasable: true},
			8: {ID: 8, Name: "Icon Pack", Price: 45000, Purchasable: true},
		}},
		store:    &fakeOrderStore{},
		cart:     newFakeCart(),
		sessions: &fakeSessions{session: gateway.Session{Token: "tok-123", RedirectURL: "https://pay.example.com/tok-123"}},
		pub:      &fakePublisher{},
	}

	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Kafka.Topic = "orders.lifecycle"

	f.svc = NewService(Params{
		Oracle:    f.oracle,
		Orders:    f.store,
		Carts:     f.cart,
		Sessions:  f.sessions,
		Publisher: f.pub,
		Config:    cfg,
		Logger:    zap.NewNop(),
	})
	return f
}

func validRequest() dto.CheckoutRequest {
	return dto.CheckoutRequest{
		AccountID: 42,
		Buyer:     dto.Buyer{Name: "Ana", Email: "ana@example.com", Phone: "555"},
		Items:     []dto.CheckoutItem{{ProductID: 7, Quantity: 2}},
	}
}

func kindOf(err error) errorbank.Kind {
	return errorbank.From(err).Kind()
}

func TestCheckoutRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CheckoutRequest)
	}{
		{"missing account", func(r *dto.CheckoutRequest) { r.AccountID = 0 }},
		{"empty items", func(r *dto.CheckoutRequest) { r.Items = nil }},
		{"zero quantity", func(r *dto.CheckoutRequest) { r.Items[0].Quantity = 0 }},
		{"negative quantity", func(r *dto.CheckoutRequest) { r.Items[0].Quantity = -1 }},
		{"missing product", func(r *dto.CheckoutRequest) { r.Items[0].ProductID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.Checkout(context.Background(), req)
			if kindOf(err) != errorbank.KindBadRequest {
				t.Fatalf("kind = %v, want bad_request", kindOf(err))
			}
			if len(f.store.orders) != 0 {
				t.Fatal("nothing may be persisted for rejected input")
			}
		})
	}
}

func TestCheckoutPersistsOraclePricedOrder(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Checkout(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(f.store.orders) != 1 {
		t.Fatalf("orders persisted = %d, want 1", len(f.store.orders))
	}
	order := f.store.orders[0]
	if order.TotalAmount != 200000 {
		t.Errorf("total = %d, want 200000 (oracle price x quantity)", order.TotalAmount)
	}
	if order.Status != entity.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.AccountID != 42 {
		t.Errorf("account = %d", order.AccountID)
	}

	lines := f.store.lines[0]
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0].PriceAtPurchase != 100000 {
		t.Errorf("price snapshot = %d, want 100000", lines[0].PriceAtPurchase)
	}
	if lines[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", lines[0].Quantity)
	}

	if resp.PaymentToken != "tok-123" {
		t.Errorf("token = %s", resp.PaymentToken)
	}
	if resp.OrderCode != order.Code {
		t.Errorf("response code = %s, order code = %s", resp.OrderCode, order.Code)
	}
	if !strings.HasPrefix(order.Code, "ORD-") {
		t.Errorf("code format = %s", order.Code)
	}

	if f.sessions.got.Amount != 200000 {
		t.Errorf("gateway amount = %d, want the persisted total", f.sessions.got.Amount)
	}
	if f.sessions.got.OrderCode != order.Code {
		t.Errorf("gateway order id = %s", f.sessions.got.OrderCode)
	}
}

func TestCheckoutMergesDuplicateItems(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = []dto.CheckoutItem{
		{ProductID: 7, Quantity: 1},
		{ProductID: 8, Quantity: 1},
		{ProductID: 7, Quantity: 2},
	}

	_, err := f.svc.Checkout(context.Background(), req)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if got := f.store.orders[0].TotalAmount; got != 3*100000+45000 {
		t.Errorf("total = %d, want 345000", got)
	}
	if got := len(f.store.lines[0]); got != 2 {
		t.Errorf("lines = %d, want 2 (duplicates merged)", got)
	}
}

func TestCheckoutRejectsWhenAnyProductUnavailable(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Items = append(req.Items, dto.CheckoutItem{ProductID: 99, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), req)
	if kindOf(err) != errorbank.KindUnprocessableEntity {
		t.Fatalf("kind = %v, want unprocessable_entity", kindOf(err))
	}
	if got := errorbank.From(err).Details()["product_reference"]; got != int64(99) {
		t.Errorf("offending product detail = %v, want 99", got)
	}
	if len(f.store.orders) != 0 {
		t.Fatal("all-or-nothing: no order may be persisted")
	}
}

func TestCheckoutRetriesOnCodeCollision(t *testing.T) {
	f := newFixture()
	f.store.dupBudget = 2

	resp, err := f.svc.Checkout(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Checkout after collisions: %v", err)
	}
	if resp.OrderCode == "" {
		t.Fatal("missing order code")
	}
}

func TestCheckoutGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture()
	f.store.dupBudget = codeAttempts

	_, err := f.svc.Checkout(context.Background(), validRequest())
	if kindOf(err) != errorbank.KindInternal {
		t.Fatalf("kind = %v, want internal", kindOf(err))
	}
}

func TestCheckoutGatewayFailureLeavesPendingOrder(t *testing.T) {
	f := newFixture()
	f.sessions.err = errors.New("connect timeout")

	_, err := f.svc.Checkout(context.Background(), validRequest())
	if kindOf(err) != errorbank.KindUnavailable {
		t.Fatalf("kind = %v, want unavailable", kindOf(err))
	}

	// The order survives; a late webhook can still settle it.
	if len(f.store.orders) != 1 {
		t.Fatalf("orders persisted = %d, want 1", len(f.store.orders))
	}
	if f.store.orders[0].Status != entity.StatusPending {
		t.Errorf("status = %s, want pending", f.store.orders[0].Status)
	}

	select {
	case <-f.cart.called:
		t.Fatal("cart must not be cleared when checkout fails")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCheckoutCartCleanupIsBestEffort(t *testing.T) {
	f := newFixture()
	f.cart.err = errors.New("cart store down")

	if _, err := f.svc.Checkout(context.Background(), validRequest()); err != nil {
		t.Fatalf("cart failure must not fail checkout: %v", err)
	}

	select {
	case <-f.cart.called:
	case <-time.After(time.Second):
		t.Fatal("cart cleanup was never attempted")
	}

	f.cart.mu.Lock()
	defer f.cart.mu.Unlock()
	if len(f.cart.ids) != 1 || f.cart.ids[0] != 7 {
		t.Errorf("cleanup ids = %v, want [7]", f.cart.ids)
	}
}

func TestCheckoutPublishesCreatedEvent(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Checkout(context.Background(), validRequest()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	if len(f.pub.messages) != 1 {
		t.Fatalf("published = %d, want 1", len(f.pub.messages))
	}
	if !strings.Contains(string(f.pub.messages[0]), "order.created") {
		t.Errorf("event payload = %s", f.pub.messages[0])
	}
}
