package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, SecretKey: "sk_test"}, zap.NewNop())
}

func TestCreateCheckout_Success(t *testing.T) {
	var gotAmount string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test" {
			t.Errorf("authorization: got %q", auth)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotAmount, _ = body["amount"].(string)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "Hosted Link",
			"data":    map[string]any{"link": "https://checkout.example/abc"},
		})
	})

	res := client.CreateCheckout(context.Background(), CheckoutRequest{
		Reference: "ref-1",
		Amount:    105000, // minor units
		Currency:  "NGN",
		Email:     "m@example.com",
	})

	if !res.OK {
		t.Fatalf("expected OK, got message %q", res.Message)
	}
	if res.PaymentLink != "https://checkout.example/abc" {
		t.Errorf("payment link: got %q", res.PaymentLink)
	}
	if gotAmount != "1050" {
		t.Errorf("wire amount: got %q, want major units \"1050\"", gotAmount)
	}
}

func TestCreateCheckout_SoftFailsOnHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	res := client.CreateCheckout(context.Background(), CheckoutRequest{Reference: "ref-2", Amount: 1000, Currency: "NGN"})
	if res.OK {
		t.Fatal("expected soft failure")
	}
	if res.Message == "" {
		t.Error("expected a failure message")
	}
	if res.Reference != "ref-2" {
		t.Errorf("reference: got %q", res.Reference)
	}
}

func TestCreateCheckout_SoftFailsOnUnreachableHost(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:1", SecretKey: "sk"}, zap.NewNop())
	res := client.CreateCheckout(context.Background(), CheckoutRequest{Reference: "ref-3", Amount: 1000, Currency: "NGN"})
	if res.OK {
		t.Fatal("expected soft failure on connection error")
	}
}

func TestInitiateTransfer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["account_bank"] != "044" || body["account_number"] != "0690000040" {
			t.Errorf("bank fields: got %v / %v", body["account_bank"], body["account_number"])
		}
		if body["amount"] != "1900" {
			t.Errorf("amount: got %v, want \"1900\"", body["amount"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"id": 109829},
		})
	})

	res := client.InitiateTransfer(context.Background(), TransferRequest{
		BankCode:      "044",
		AccountNumber: "0690000040",
		Amount:        190000,
		Currency:      "NGN",
		Reference:     "disb-ref-1",
		Narration:     "subpool payout",
	})

	if !res.OK {
		t.Fatalf("expected OK, got %q", res.Message)
	}
	if res.TransferID != "109829" {
		t.Errorf("transfer id: got %q", res.TransferID)
	}
}

func TestInitiateTransfer_GatewayRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"message": "Insufficient balance",
		})
	})

	res := client.InitiateTransfer(context.Background(), TransferRequest{Reference: "disb-ref-2"})
	if res.OK {
		t.Fatal("expected rejection")
	}
	if res.Message != "Insufficient balance" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestFetchTransferStatus_NormalizesCase(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfers/109829" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"status": "successful"},
		})
	})

	res := client.FetchTransferStatus(context.Background(), "109829")
	if !res.OK {
		t.Fatalf("expected OK, got %q", res.Message)
	}
	if res.Status != TransferSuccessful {
		t.Errorf("status: got %q, want %q", res.Status, TransferSuccessful)
	}
}

func TestVerify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tx_ref"); got != "ref-9" {
			t.Errorf("tx_ref: got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"status":   "successful",
				"amount":   1050,
				"currency": "NGN",
			},
		})
	})

	res := client.Verify(context.Background(), "ref-9")
	if !res.OK {
		t.Fatalf("expected OK, got %q", res.Message)
	}
	if res.Amount != 105000 {
		t.Errorf("amount: got %d minor units, want 105000", res.Amount)
	}
	if res.Status != "successful" {
		t.Errorf("status: got %q", res.Status)
	}
}

func TestResolveBankCode_CachesDirectory(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": []map[string]any{
				{"code": "044", "name": "Access Bank"},
				{"code": "058", "name": "GTBank"},
			},
		})
	})

	ctx := context.Background()
	code, err := client.ResolveBankCode(ctx, "access bank")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if code != "044" {
		t.Errorf("code: got %q, want 044", code)
	}

	if _, err := client.ResolveBankCode(ctx, "GTBank"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if calls != 1 {
		t.Errorf("directory fetched %d times, want 1 (cached)", calls)
	}

	if _, err := client.ResolveBankCode(ctx, "No Such Bank"); err == nil {
		t.Error("expected error for unknown bank")
	}
}
