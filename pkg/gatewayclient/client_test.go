package gatewayclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyPaymentConfirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/payments/verify/pay_001" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"reference":"pay_001","status":"Successful","amount":2000,"metadata":{"vote":{"b":2}},"redeemed":false}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.VerifyPayment(context.Background(), "pay_001")
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if !result.Verified {
		t.Fatal("expected payment to be verified")
	}
	if result.Status != "confirmed" {
		t.Fatalf("expected normalized status confirmed, got %q", result.Status)
	}
	if result.Amount != 2000 {
		t.Fatalf("expected amount 2000, got %d", result.Amount)
	}
	if result.Metadata == nil {
		t.Fatal("expected metadata to be carried through")
	}
}

func TestVerifyPaymentPendingIsUnverified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"reference":"pay_002","status":"pending","amount":2000}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.VerifyPayment(context.Background(), "pay_002")
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if result.Verified {
		t.Fatal("pending payment must not verify")
	}
	if result.Reason == "" {
		t.Fatal("expected a reason for the unverified result")
	}
}

func TestVerifyPaymentUnknownReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.VerifyPayment(context.Background(), "pay_999")
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if result.Verified {
		t.Fatal("unknown reference must not verify")
	}
}

func TestVerifyPaymentGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":[{"title":"Internal","detail":"upstream outage","status":"500"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	if _, err := client.VerifyPayment(context.Background(), "pay_003"); err == nil {
		t.Fatal("expected error for gateway failure")
	}
}
