package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/argus/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestCreateAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts" {
			t.Errorf("path = %s, want /v1/accounts", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["tenant"] != "alice" {
			t.Errorf("tenant = %q", body["tenant"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"wallet_id": "GABC123",
			"balance":   1000.0,
		})
	})

	account, err := client.CreateAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if account.WalletID != "GABC123" || account.Balance != 1000 {
		t.Errorf("account = %+v", account)
	}
}

func TestEstablishTrust_SendsAssetCode(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.EstablishTrust(context.Background(), "GABC123"); err != nil {
		t.Fatalf("EstablishTrust() error = %v", err)
	}
	if got["asset_code"] != DefaultAssetCode || got["wallet_id"] != "GABC123" {
		t.Errorf("payload = %+v", got)
	}
}

func TestGetBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"balance": 512.25})
	})

	balance, err := client.GetBalance(context.Background(), "GABC123")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != 512.25 {
		t.Errorf("balance = %.2f, want 512.25", balance)
	}
}

func TestSubmitTrade(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["action"] != "buy" || body["ticker"] != "AAPL" {
			t.Errorf("payload = %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"tx_hash":    "abc123",
			"audit_link": "https://ledger.dev/tx/abc123",
		})
	})

	settlement, err := client.SubmitTrade(context.Background(), "GABC123", models.TradeActionBuy, "AAPL", 500, 100)
	if err != nil {
		t.Fatalf("SubmitTrade() error = %v", err)
	}
	if settlement.TxHash != "abc123" || settlement.AuditLink == "" {
		t.Errorf("settlement = %+v", settlement)
	}
}

func TestSubmitTrade_EmptyTxHashRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"tx_hash": ""})
	})

	if _, err := client.SubmitTrade(context.Background(), "G1", models.TradeActionSell, "AAPL", 100, 50); err == nil {
		t.Error("a settlement without a transaction hash must be an error")
	}
}

func TestSubmitTrade_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient gateway liquidity", http.StatusUnprocessableEntity)
	})

	_, err := client.SubmitTrade(context.Background(), "G1", models.TradeActionBuy, "AAPL", 100, 50)
	if err == nil {
		t.Fatal("expected API error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}
