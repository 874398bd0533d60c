// Package paygate is a thin HTTP client for the external payment processor.
// It only covers the four calls the marketplace needs: authorize a hold,
// capture it, transfer the provider's share out and refund.
package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Error carries the gateway operation and HTTP status so callers can log a
// useful failure reason.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("paygate: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("paygate: %s: %s", e.Op, e.Message)
}

type authorizeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	PayerID     string `json:"payer_id"`
	PayeeID     string `json:"payee_id"`
	Capture     bool   `json:"capture"`
}

type authorizeResponse struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
}

func (c *Client) AuthorizeCharge(ctx context.Context, amountCents int64, currency, payerId, payeeId string) (string, error) {
	var resp authorizeResponse
	err := c.do(ctx, "authorize", http.MethodPost, "/v1/charges/authorize", authorizeRequest{
		AmountCents: amountCents,
		Currency:    currency,
		PayerID:     payerId,
		PayeeID:     payeeId,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.IntentID, nil
}

func (c *Client) Capture(ctx context.Context, intentId string) error {
	return c.do(ctx, "capture", http.MethodPost, "/v1/charges/"+intentId+"/capture", nil, nil)
}

type transferRequest struct {
	IntentID    string `json:"intent_id"`
	PayeeID     string `json:"payee_id"`
	AmountCents int64  `json:"amount_cents"`
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
}

func (c *Client) Transfer(ctx context.Context, intentId, payeeId string, amountCents int64) (string, error) {
	var resp transferResponse
	err := c.do(ctx, "transfer", http.MethodPost, "/v1/transfers", transferRequest{
		IntentID:    intentId,
		PayeeID:     payeeId,
		AmountCents: amountCents,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.TransferID, nil
}

func (c *Client) Refund(ctx context.Context, intentId string) error {
	return c.do(ctx, "refund", http.MethodPost, "/v1/charges/"+intentId+"/refund", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return &Error{Op: op, StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, StatusCode: resp.StatusCode, Message: "decoding response: " + err.Error()}
		}
	}

	return nil
}
