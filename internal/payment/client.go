package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

const (
	defaultRequestTimeout = 15 * time.Second
	transactionsPath      = "/transactions"
)

// Config carries the gateway endpoint and merchant credentials.
type Config struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	MerchantID string
	Timeout    time.Duration
}

// Validate applies defaults and rejects unusable configuration.
func (cfg *Config) Validate() error {
	if cfg.BaseURL == "" {
		return errors.New("payment base url is empty")
	}
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return errors.New("payment credentials are empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	return nil
}

// Client is a narrow HTTP client for the payment gateway's sale
// endpoint. It implements rental.PaymentGateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New returns a Client for the configured gateway.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type saleRequestPayload struct {
	Amount             string             `json:"amount"`
	PaymentMethodNonce string             `json:"payment_method_nonce"`
	MerchantID         string             `json:"merchant_id,omitempty"`
	Options            saleOptionsPayload `json:"options"`
}

type saleOptionsPayload struct {
	SubmitForSettlement bool `json:"submit_for_settlement"`
}

type saleResponsePayload struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount string `json:"amount"`
	} `json:"transaction"`
}

// Sale submits a sale for immediate settlement and returns the gateway
// verdict. A declined sale is a successful call with Success false; an
// error return means the verdict is unknown.
func (client *Client) Sale(ctx context.Context, request rental.SaleRequest) (rental.SaleResult, error) {
	payload := saleRequestPayload{
		Amount:             request.Amount,
		PaymentMethodNonce: request.PaymentMethodNonce,
		MerchantID:         client.cfg.MerchantID,
		Options:            saleOptionsPayload{SubmitForSettlement: request.SubmitForSettlement},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return rental.SaleResult{}, fmt.Errorf("encode sale request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, client.cfg.BaseURL+transactionsPath, bytes.NewReader(body))
	if err != nil {
		return rental.SaleResult{}, fmt.Errorf("build sale request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.SetBasicAuth(client.cfg.PublicKey, client.cfg.PrivateKey)

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return rental.SaleResult{}, fmt.Errorf("submit sale: %w", err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return rental.SaleResult{}, fmt.Errorf("read sale response: %w", err)
	}
	if httpResponse.StatusCode >= http.StatusInternalServerError {
		return rental.SaleResult{}, fmt.Errorf("gateway unavailable: status %d", httpResponse.StatusCode)
	}

	var decoded saleResponsePayload
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return rental.SaleResult{}, fmt.Errorf("decode sale response: %w", err)
	}
	return rental.SaleResult{
		Success:       decoded.Success,
		TransactionID: decoded.Transaction.ID,
		Status:        decoded.Transaction.Status,
		Amount:        decoded.Transaction.Amount,
		Message:       decoded.Message,
	}, nil
}
