package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a lait server over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string

	// Account is sent as the caller identity on every request. Mutating
	// calls fail with 401 when it is empty.
	Account string
}

// NewClient creates a client for the given base URL, e.g.
// "https://lait.example.com". The /v1 prefix is added automatically.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateOrder opens a new order as c.Account.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/v1/orders", req)
}

// GetOrder fetches a single order by ID.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	return c.orderCall(ctx, http.MethodGet, "/v1/orders/"+id, nil)
}

// OpenOrders lists orders awaiting settlement, newest first.
func (c *Client) OpenOrders(ctx context.Context, limit int) ([]*Order, error) {
	return c.listCall(ctx, fmt.Sprintf("/v1/orders?limit=%d", limit))
}

// AccountOrders lists an account's orders, newest first.
func (c *Client) AccountOrders(ctx context.Context, account string, limit int) ([]*Order, error) {
	return c.listCall(ctx, fmt.Sprintf("/v1/accounts/%s/orders?limit=%d", account, limit))
}

// ApproveOrder marks an order's fiat leg as verified.
func (c *Client) ApproveOrder(ctx context.Context, id string) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/v1/orders/"+id+"/approve", nil)
}

// FillOrder settles an order. Requires settlement privileges.
func (c *Client) FillOrder(ctx context.Context, id, notes string) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/v1/orders/"+id+"/fill",
		map[string]string{"notes": notes})
}

// RefundOrder unwinds an order after its refund window opens.
func (c *Client) RefundOrder(ctx context.Context, id, reason string) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/v1/orders/"+id+"/refund",
		map[string]string{"reason": reason})
}

// ExpireOrder expires an order past its deadline. Any caller may do this.
func (c *Client) ExpireOrder(ctx context.Context, id string) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/v1/orders/"+id+"/expire", nil)
}

// UpdateOrderMetadata replaces an order's metadata. The server marks the
// order edited, which blocks later deletion.
func (c *Client) UpdateOrderMetadata(ctx context.Context, id, metadata string) (*Order, error) {
	return c.orderCall(ctx, http.MethodPut, "/v1/orders/"+id+"/metadata",
		map[string]string{"metadata": metadata})
}

// DeleteOrder removes a pending order that never held escrow.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/orders/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

// EscrowBalances returns the custody pool per asset.
func (c *Client) EscrowBalances(ctx context.Context) (map[string]int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/escrow", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	var out struct {
		Escrow map[string]int64 `json:"escrow"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode escrow response: %w", err)
	}
	return out.Escrow, nil
}

func (c *Client) orderCall(ctx context.Context, method, path string, body any) (*Order, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, parseError(resp)
	}
	var out struct {
		Order *Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return out.Order, nil
}

func (c *Client) listCall(ctx context.Context, path string) ([]*Order, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	var out struct {
		Orders []*Order `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}
	return out.Orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Account != "" {
		req.Header.Set("X-Account", c.Account)
	}
	return c.httpClient.Do(req)
}

func parseError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || json.Unmarshal(data, apiErr) != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return apiErr
}
