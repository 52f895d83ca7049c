// Package paypal is a minimal client for the PayPal Orders v2 REST API,
// covering order creation and capture with client credentials auth.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// Issue codes returned by the capture endpoint that the checkout
	// flow reacts to.
	IssueInstrumentDeclined = "INSTRUMENT_DECLINED"
	IssuePermissionDenied   = "PERMISSION_DENIED"
)

// Client calls the PayPal REST API. Access tokens are cached and
// refreshed shortly before expiry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
	}
}

// Amount is a monetary value in the API's string representation.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// FormatAmount renders an amount in cents as the decimal string the API expects.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// PurchaseUnit describes one chargeable unit of an order.
type PurchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      Amount `json:"amount"`
}

// CreateOrderRequest is the payload for POST /v2/checkout/orders.
type CreateOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// Order is the provider's view of an order.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureID returns the id of the first completed capture, empty if none.
func (o *Order) CaptureID() string {
	for _, unit := range o.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.ID != "" {
				return capture.ID
			}
		}
	}
	return ""
}

// ErrorDetail is one entry of an API error's details array.
type ErrorDetail struct {
	Issue       string `json:"issue"`
	Description string `json:"description"`
}

// APIError is a structured error response from the REST API.
type APIError struct {
	StatusCode int
	Name       string        `json:"name"`
	Message    string        `json:"message"`
	DebugID    string        `json:"debug_id"`
	Details    []ErrorDetail `json:"details"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("paypal: %s (%s): %s", e.Name, e.Details[0].Issue, e.Details[0].Description)
	}
	return fmt.Sprintf("paypal: %s: %s", e.Name, e.Message)
}

// HasIssue reports whether any detail entry carries the given issue code.
func (e *APIError) HasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

// FirstDetail returns the first detail entry, nil when the error has none.
func (e *APIError) FirstDetail() *ErrorDetail {
	if len(e.Details) == 0 {
		return nil
	}
	return &e.Details[0]
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken returns a cached token or fetches a new one via the
// client credentials grant.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("paypal: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal: token request failed with status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("paypal: decode token response: %w", err)
	}

	c.accessToken = token.AccessToken
	// Refresh a minute early to avoid using a token at the edge of expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

// CreateOrder creates an order with intent CAPTURE.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved order. Provider rejections come back
// as *APIError with the details array preserved.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("paypal: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paypal: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil {
			return fmt.Errorf("paypal: request failed with status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("paypal: decode response: %w", err)
		}
	}
	return nil
}
