package testutils

import (
	"github.com/PxPatel/matching-service/internal/api/models"
)

// OrderRequest builders for common test cases

// NewLimitBuyOrder creates a buy order request on DefaultSymbol
func NewLimitBuyOrder(userID string, price float64, quantity int) models.SubmitOrderRequest {
	return NewOrder(userID, DefaultSymbol, "buy", price, quantity)
}

// NewLimitSellOrder creates a sell order request on DefaultSymbol
func NewLimitSellOrder(userID string, price float64, quantity int) models.SubmitOrderRequest {
	return NewOrder(userID, DefaultSymbol, "sell", price, quantity)
}

// NewOrder creates an order request for any symbol and side
func NewOrder(userID, symbol, side string, price float64, quantity int) models.SubmitOrderRequest {
	return models.SubmitOrderRequest{
		UserID:   userID,
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}
}

// NewBatchRequest creates a batch order request
func NewBatchRequest(orders ...models.SubmitOrderRequest) models.BatchOrderRequest {
	return models.BatchOrderRequest{
		Orders: orders,
	}
}
