package models

import (
	"strings"
)

// MaxBatchSize caps the number of orders in one batch submission
const MaxBatchSize = 1000

// SubmitOrderRequest represents a single order submission
type SubmitOrderRequest struct {
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"` // "buy" | "sell"
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Validate validates the order request
func (r *SubmitOrderRequest) Validate() *HTTPError {
	// Validate user_id
	if strings.TrimSpace(r.UserID) == "" {
		return ErrBadRequest("user_id cannot be empty", map[string]interface{}{"field": "user_id"})
	}

	if strings.TrimSpace(r.Symbol) == "" {
		return ErrInvalidSymbolError(r.Symbol)
	}

	// Validate side
	side := strings.ToLower(strings.TrimSpace(r.Side))
	if side != "buy" && side != "sell" {
		return ErrInvalidSideError(r.Side)
	}

	// Validate quantity
	if r.Quantity <= 0 {
		return ErrInvalidQuantityError(r.Quantity)
	}

	// Every order is a limit order
	if r.Price <= 0 {
		return ErrInvalidPriceError(r.Price)
	}

	return nil
}

// BatchOrderRequest represents a batch order submission
type BatchOrderRequest struct {
	Orders []SubmitOrderRequest `json:"orders"`
}

// Validate validates the batch request
func (r *BatchOrderRequest) Validate() *HTTPError {
	if len(r.Orders) == 0 {
		return ErrBadRequest("orders array cannot be empty", map[string]interface{}{"field": "orders"})
	}

	if len(r.Orders) > MaxBatchSize {
		return ErrBadRequest("batch size cannot exceed 1000 orders",
			map[string]interface{}{"field": "orders", "max_size": MaxBatchSize, "provided_size": len(r.Orders)})
	}

	return nil
}
