// Package client implements a Go client for the lait order ledger API.
// This is the foundation for integrating external services with lait.
package client

import (
	"fmt"
	"time"
)

// Order mirrors the order resource returned by the API.
type Order struct {
	ID             string     `json:"id"`
	Account        string     `json:"account"`
	Asset          string     `json:"asset"`
	Amount         int64      `json:"amount"`
	FiatCurrency   string     `json:"fiatCurrency"`
	FiatAmount     int64      `json:"fiatAmount"`
	Metadata       string     `json:"metadata,omitempty"`
	Direction      string     `json:"direction"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	MinRefundAt    time.Time  `json:"minRefundAt"`
	ExpireAt       time.Time  `json:"expireAt"`
	FilledBy       string     `json:"filledBy,omitempty"`
	FilledAt       *time.Time `json:"filledAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	MetadataEdited bool       `json:"metadataEdited"`
}

// CreateOrderRequest is the payload for opening a new order.
type CreateOrderRequest struct {
	Direction    string `json:"direction"`
	Asset        string `json:"asset"`
	Amount       int64  `json:"amount"`
	FiatCurrency string `json:"fiatCurrency"`
	FiatAmount   int64  `json:"fiatAmount"`
	Metadata     string `json:"metadata,omitempty"`
}

// Error represents an API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConflict reports whether the error is a state conflict (the order
// exists but cannot make the requested transition right now).
func (e *Error) IsConflict() bool {
	return e.StatusCode == 409
}

// IsNotFound reports whether the error is a missing-order error.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}
