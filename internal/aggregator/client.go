// Package aggregator provides a client for the bank-data aggregation API:
// link-token issuance, public-token exchange and windowed transaction fetch.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budget/internal/core"
)

// Client calls the aggregator's REST API. All calls carry a bounded timeout
// and surface failures as core.UpstreamError; there are no retries (link
// tokens are cheap to re-request, syncs are user-triggered).
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	clientName string
	httpClient *http.Client
}

// ExternalTransaction is one transaction as reported by the aggregator.
// Amount is in decimal dollars, outflows positive.
type ExternalTransaction struct {
	TransactionID string   `json:"transaction_id"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Name          string   `json:"name"`
	Category      []string `json:"category"`
}

// TokenExchange is the result of exchanging a public token.
type TokenExchange struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

func NewClient(baseURL, clientID, secret, clientName string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		clientName: clientName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateLinkToken requests a short-lived link token for the client-side
// linking widget. Product set, country and language are fixed.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	body := map[string]any{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   c.clientName,
		"products":      []string{"transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}
	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", body, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken exchanges a short-lived public token from the linking
// widget for a durable access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (TokenExchange, error) {
	body := map[string]any{"public_token": publicToken}
	var resp TokenExchange
	if err := c.post(ctx, "/item/public_token/exchange", body, &resp); err != nil {
		return TokenExchange{}, err
	}
	return resp, nil
}

// GetTransactions fetches transactions in the [start, end] window, inclusive.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]ExternalTransaction, error) {
	body := map[string]any{
		"access_token": accessToken,
		"start_date":   start.String(),
		"end_date":     end.String(),
	}
	var resp struct {
		Transactions []ExternalTransaction `json:"transactions"`
	}
	if err := c.post(ctx, "/transactions/get", body, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	op := strings.TrimPrefix(path, "/")

	payload, err := json.Marshal(body)
	if err != nil {
		return &core.UpstreamError{Operation: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &core.UpstreamError{Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.UpstreamError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &core.UpstreamError{Operation: op, Message: readErrorMessage(resp.Body, resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.UpstreamError{Operation: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage extracts the aggregator's own message from an error body,
// falling back to the HTTP status line.
func readErrorMessage(r io.Reader, status string) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return status
	}
	var body struct {
		ErrorMessage string `json:"error_message"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.ErrorMessage != "" {
			return body.ErrorMessage
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return status
}
