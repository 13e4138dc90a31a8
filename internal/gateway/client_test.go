package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/dto"
)

func testConfig(baseURL string) config.Config {
	var cfg config.Config
	cfg.Gateway.BaseURL = baseURL
	cfg.Gateway.ServerKey = "server-key"
	cfg.Gateway.Timeout = 2 * time.Second
	return cfg
}

func TestCreateSession(t *testing.T) {
	var captured sessionPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions" {
			t.Errorf("path = %s, want /v1/sessions", r.URL.Path)
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "server-key" {
			t.Errorf("basic auth user = %q, want server key", user)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":        "tok-123",
			"redirect_url": "https://pay.example.com/tok-123",
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zap.NewNop())
	session, err := client.CreateSession(context.Background(), SessionRequest{
		OrderCode: "ORD-1-ab",
		Amount:    200000,
		Buyer:     dto.Buyer{Name: "Ana", Email: "ana@example.com", Phone: "555"},
		Items: []SessionItem{
			{ProductID: 7, Name: "E-Book", Price: 100000, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if session.Token != "tok-123" {
		t.Errorf("token = %s, want tok-123", session.Token)
	}
	if session.RedirectURL != "https://pay.example.com/tok-123" {
		t.Errorf("redirect = %s", session.RedirectURL)
	}
	if captured.Transaction.OrderID != "ORD-1-ab" {
		t.Errorf("order id forwarded = %s", captured.Transaction.OrderID)
	}
	if captured.Transaction.GrossAmount != 200000 {
		t.Errorf("gross amount forwarded = %d", captured.Transaction.GrossAmount)
	}
}

func TestCreateSessionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zap.NewNop())
	if _, err := client.CreateSession(context.Background(), SessionRequest{OrderCode: "ORD-2-cd", Amount: 1}); err == nil {
		t.Fatal("expected error for upstream 502")
	}
}

func TestCreateSessionEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": ""})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zap.NewNop())
	if _, err := client.CreateSession(context.Background(), SessionRequest{OrderCode: "ORD-3-ef", Amount: 1}); err == nil {
		t.Fatal("expected error for empty token")
	}
}
