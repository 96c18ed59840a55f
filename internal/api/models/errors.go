package models

import "net/http"

// ErrorCode represents standard error codes
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrInvalidSide     ErrorCode = "INVALID_SIDE"
	ErrInvalidPrice    ErrorCode = "INVALID_PRICE"
	ErrInvalidQuantity ErrorCode = "INVALID_QUANTITY"
	ErrInvalidSymbol   ErrorCode = "INVALID_SYMBOL"
	ErrOrderNotFound   ErrorCode = "ORDER_NOT_FOUND"
	ErrMatchingFailed  ErrorCode = "MATCHING_FAILED"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a structured error response
type APIError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTPError wraps an APIError with an HTTP status code
type HTTPError struct {
	StatusCode int
	Error      APIError
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, code ErrorCode, message string, details map[string]interface{}) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Error: APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// Common error constructors

func ErrBadRequest(message string, details map[string]interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest, message, details)
}

func ErrInvalidSideError(providedSide string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidSide,
		"Invalid side, must be 'buy' or 'sell'",
		map[string]interface{}{"provided_value": providedSide})
}

func ErrInvalidPriceError(price float64) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidPrice,
		"Price must be greater than 0",
		map[string]interface{}{"field": "price", "provided_value": price})
}

func ErrInvalidQuantityError(quantity int) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidQuantity,
		"Quantity must be positive",
		map[string]interface{}{"field": "quantity", "provided_value": quantity})
}

func ErrInvalidSymbolError(symbol string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidSymbol,
		"Symbol cannot be empty",
		map[string]interface{}{"field": "symbol", "provided_value": symbol})
}

func ErrOrderNotFoundError(orderID uint64) *HTTPError {
	return NewHTTPError(http.StatusNotFound, ErrOrderNotFound,
		"Order not found",
		map[string]interface{}{"order_id": orderID})
}

// ErrMatchingFailedError reports a match that stopped part way. Trades already
// executed stand and are listed in details.
func ErrMatchingFailedError(orderID uint64, trades int) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrMatchingFailed,
		"Matching stopped before the order was fully processed",
		map[string]interface{}{"order_id": orderID, "executed_trades": trades})
}

func ErrInternal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrInternalError, message, nil)
}
