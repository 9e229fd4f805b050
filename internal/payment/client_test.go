package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		PublicKey:  "pub-key",
		PrivateKey: "priv-key",
		MerchantID: "merchant-1",
	}
}

func TestSaleSubmitsCredentialsAndPayload(t *testing.T) {
	t.Parallel()
	var captured saleRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/transactions" {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		username, password, ok := request.BasicAuth()
		if !ok || username != "pub-key" || password != "priv-key" {
			t.Errorf("unexpected credentials: %q %q", username, password)
		}
		if err := json.NewDecoder(request.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":true,"transaction":{"id":"gw-42","status":"submitted_for_settlement","amount":"50.00"}}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	result, err := client.Sale(context.Background(), rental.SaleRequest{
		Amount:              "50.00",
		PaymentMethodNonce:  "nonce-ok",
		SubmitForSettlement: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if !result.Success || result.TransactionID != "gw-42" || result.Amount != "50.00" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if captured.Amount != "50.00" || captured.PaymentMethodNonce != "nonce-ok" {
		t.Fatalf("unexpected payload: %+v", captured)
	}
	if captured.MerchantID != "merchant-1" || !captured.Options.SubmitForSettlement {
		t.Fatalf("unexpected payload options: %+v", captured)
	}
}

func TestSaleDeclineIsNotAnError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"success":false,"message":"Insufficient Funds","transaction":{"id":"gw-7","status":"processor_declined"}}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	result, err := client.Sale(context.Background(), rental.SaleRequest{Amount: "50.00", PaymentMethodNonce: "nonce-decline"})
	if err != nil {
		t.Fatalf("expected decline without error, got %v", err)
	}
	if result.Success {
		t.Fatalf("expected Success false")
	}
	if result.Message != "Insufficient Funds" || result.Status != "processor_declined" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSaleServerErrorSurfacesAsError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := New(testConfig(server.URL))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := client.Sale(context.Background(), rental.SaleRequest{Amount: "50.00", PaymentMethodNonce: "nonce-ok"}); err == nil {
		t.Fatalf("expected error for 5xx status")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := New(Config{BaseURL: "http://gateway.local"}); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}
