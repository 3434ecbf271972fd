package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "client-id", "secret", "Family Budget App", 5*time.Second)
}

func TestCreateLinkToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/link/token/create" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("PLAID-CLIENT-ID") != "client-id" || r.Header.Get("PLAID-SECRET") != "secret" {
			t.Error("missing auth headers")
		}
		var body struct {
			User        map[string]string `json:"user"`
			ClientName  string            `json:"client_name"`
			Products    []string          `json:"products"`
			CountryCode []string          `json:"country_codes"`
			Language    string            `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.User["client_user_id"] != "u1" {
			t.Errorf("unexpected user %v", body.User)
		}
		if len(body.Products) != 1 || body.Products[0] != "transactions" {
			t.Errorf("unexpected products %v", body.Products)
		}
		json.NewEncoder(w).Encode(map[string]string{"link_token": "link-abc"})
	})

	token, err := c.CreateLinkToken(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "link-abc" {
		t.Fatalf("expected link-abc, got %s", token)
	}
}

func TestExchangePublicToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/public_token/exchange" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-1", "item_id": "item-1"})
	})

	ex, err := c.ExchangePublicToken(context.Background(), "public-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.AccessToken != "access-1" || ex.ItemID != "item-1" {
		t.Fatalf("unexpected exchange: %+v", ex)
	}
}

func TestGetTransactionsWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AccessToken string `json:"access_token"`
			StartDate   string `json:"start_date"`
			EndDate     string `json:"end_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.StartDate != "2024-02-14" || body.EndDate != "2024-03-15" {
			t.Errorf("unexpected window %s..%s", body.StartDate, body.EndDate)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{
				{"transaction_id": "ext-1", "amount": 12.34, "date": "2024-03-10", "name": "COFFEE SHOP", "category": []string{"Food and Drink", "Coffee"}},
			},
		})
	})

	txs, err := c.GetTransactions(context.Background(), "access-1", core.NewDate(2024, 2, 14), core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].TransactionID != "ext-1" || txs[0].Amount != 12.34 {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestUpstreamErrorCarriesAggregatorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_message": "INVALID_PUBLIC_TOKEN"})
	})

	_, err := c.ExchangePublicToken(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsUpstream(err) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if got := err.Error(); !strings.Contains(got, "INVALID_PUBLIC_TOKEN") {
		t.Fatalf("error %q missing aggregator message", got)
	}
}

func TestUpstreamErrorOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "id", "secret", "app", 50*time.Millisecond)

	_, err := c.CreateLinkToken(context.Background(), "u1")
	if !core.IsUpstream(err) {
		t.Fatalf("expected UpstreamError on timeout, got %v", err)
	}
}
