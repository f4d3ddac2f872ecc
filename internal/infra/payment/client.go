// Package payment provides a client for the payment processor backend.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
)

// Client is a payment processor client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents payment client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // request budget, 15s when zero
}

// CreateIntentRequest is the wire shape of POST /create-payment.
type CreateIntentRequest struct {
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	UserEmail    string `json:"userEmail"`
	DeviceInfo   string `json:"deviceInfo"`
	AppVersion   string `json:"appVersion"`
	PurchaseType string `json:"purchaseType"`
}

// Intent is the processor's created payment intent.
type Intent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
}

// New creates a payment client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("payment base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{baseURL: cfg.BaseURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

// CreateIntent creates a payment intent for the given purchase.
func (c *Client) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	var intent Intent
	if err := c.post(ctx, "/create-payment", req, &intent); err != nil {
		return nil, err
	}
	if intent.ClientSecret == "" || intent.PaymentIntentID == "" {
		return nil, &apperr.PaymentError{
			Code:    apperr.PaymentCodeRejected,
			Message: "processor returned an incomplete intent",
		}
	}
	return &intent, nil
}

// Confirm reports a completed payment to the backend. Callers treat a
// failure here as log-only; the entitlement is not reversed.
func (c *Client) Confirm(ctx context.Context, paymentIntentID, userID string) error {
	body := struct {
		PaymentIntentID string `json:"paymentIntentId"`
		UserID          string `json:"userId"`
	}{paymentIntentID, userID}
	return c.post(ctx, "/confirm-payment", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode payment request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "failed to build payment request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.NetworkError{Op: "payment " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.PaymentError{
			Code:    apperr.PaymentCodeRejected,
			Message: readErrorMessage(resp.Body, resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{
			Op:  "payment " + path,
			Err: errors.Wrap(err, "malformed processor response"),
		}
	}
	return nil
}

// readErrorMessage extracts a processor error message, falling back to
// the HTTP status.
func readErrorMessage(r io.Reader, status int) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return http.StatusText(status)
}
