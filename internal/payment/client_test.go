package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GetCharge(t *testing.T) {
	t.Run("fetches and decodes a charge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/payments/pay_123" {
				t.Errorf("expected /v1/payments/pay_123, got %s", r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "key_id" || pass != "key_secret" {
				t.Errorf("unexpected basic auth: %s/%s", user, pass)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(Charge{
				ID:       "pay_123",
				OrderID:  "order_abc",
				Status:   "captured",
				Amount:   300000,
				Currency: "INR",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "key_id", "key_secret", server.Client())
		charge, err := client.GetCharge(context.Background(), "pay_123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if charge.Amount != 300000 {
			t.Errorf("expected amount 300000, got %d", charge.Amount)
		}
		if charge.OrderID != "order_abc" {
			t.Errorf("expected order_abc, got %s", charge.OrderID)
		}
	})

	t.Run("maps 404 to ErrChargeNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, "key_id", "key_secret", server.Client())
		_, err := client.GetCharge(context.Background(), "pay_missing")
		if !errors.Is(err, ErrChargeNotFound) {
			t.Errorf("expected ErrChargeNotFound, got %v", err)
		}
	})

	t.Run("surfaces unexpected status codes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, "key_id", "key_secret", server.Client())
		_, err := client.GetCharge(context.Background(), "pay_123")
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
	})
}
