package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderSendsIdentity(t *testing.T) {
	var gotAccount string
	var gotBody CreateOrderRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotAccount = r.Header.Get("X-Account")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": Order{ID: "ord_1", Account: "acct_alice", Status: "pending"},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.Account = "acct_alice"

	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Direction:    "BUY",
		Asset:        "usdc",
		Amount:       1000,
		FiatCurrency: "USD",
		FiatAmount:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, "ord_1", order.ID)
	assert.Equal(t, "acct_alice", gotAccount)
	assert.Equal(t, int64(1000), gotBody.Amount)
}

func TestErrorParsing(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   string
		conflict   bool
		notFound   bool
	}{
		{
			name:       "state conflict",
			statusCode: http.StatusConflict,
			body:       `{"error":"invalid_state","message":"order is filled"}`,
			wantCode:   "invalid_state",
			conflict:   true,
		},
		{
			name:       "missing order",
			statusCode: http.StatusNotFound,
			body:       `{"error":"not_found","message":"order not found"}`,
			wantCode:   "not_found",
			notFound:   true,
		},
		{
			name:       "non-JSON error body",
			statusCode: http.StatusBadGateway,
			body:       `upstream exploded`,
			wantCode:   "http_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL).GetOrder(context.Background(), "ord_x")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.conflict, apiErr.IsConflict())
			assert.Equal(t, tt.notFound, apiErr.IsNotFound())
		})
	}
}

func TestOpenOrdersAndEscrow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/orders":
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"orders": []Order{{ID: "ord_1"}, {ID: "ord_2"}},
				"count":  2,
			})
		case "/v1/escrow":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"escrow": map[string]int64{"usdc": 5000},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)

	orders, err := c.OpenOrders(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord_1", orders[0].ID)

	escrow, err := c.EscrowBalances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), escrow["usdc"])
}

func TestDeleteOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
	}))
	defer ts.Close()

	require.NoError(t, NewClient(ts.URL).DeleteOrder(context.Background(), "ord_1"))
}
