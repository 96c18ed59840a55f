package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/service"
	"github.com/PxPatel/matching-service/internal/storage"
)

func (h *Handler) place(r *http.Request, req models.SubmitOrderRequest) (*matching.MatchResult, *models.HTTPError) {
	result, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:   req.UserID,
		Symbol:   req.Symbol,
		Side:     convertSide(req.Side),
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, matching.ErrInvalidOrder):
		return nil, models.ErrBadRequest(err.Error(), nil)
	case result != nil:
		return result, models.ErrMatchingFailedError(result.Order.ID, len(result.Trades))
	default:
		logger.Error("Order submission failed", logger.Fields{"error": err})
		return nil, models.ErrInternal("Order could not be stored")
	}
}

// SubmitOrderHandler handles single order submission
func (h *Handler) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitOrderRequest

	// Parse request body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, models.ErrBadRequest("Invalid JSON format", map[string]interface{}{"error": err.Error()}))
		return
	}

	// Validate request
	if httpErr := req.Validate(); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	result, httpErr := h.place(r, req)
	if httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	writeJSON(w, http.StatusOK, models.SubmitOrderResponse{
		BaseResponse:      ok("Order submitted successfully"),
		OrderID:           result.Order.ID,
		Status:            orderStatus(&result.Order),
		RemainingQuantity: result.Order.Size,
		Trades:            convertTradesToDTO(result.Trades),
	})
}

// BatchOrderHandler handles batch order submission. Orders are placed in request
// order; a failed order does not stop the rest.
func (h *Handler) BatchOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.BatchOrderRequest

	// Parse request body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, models.ErrBadRequest("Invalid JSON format", map[string]interface{}{"error": err.Error()}))
		return
	}

	// Validate batch request
	if httpErr := req.Validate(); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	results := make([]models.BatchOrderResult, len(req.Orders))
	successful := 0
	failed := 0

	for i, orderReq := range req.Orders {
		result := models.BatchOrderResult{Index: i}

		httpErr := orderReq.Validate()
		var match *matching.MatchResult
		if httpErr == nil {
			match, httpErr = h.place(r, orderReq)
		}
		if match != nil {
			result.OrderID = match.Order.ID
			result.Trades = convertTradesToDTO(match.Trades)
		}
		if httpErr != nil {
			result.Error = &httpErr.Error
			failed++
		} else {
			result.Success = true
			successful++
		}

		results[i] = result
	}

	logger.Info("Batch order processed", logger.Fields{
		"total":      len(req.Orders),
		"successful": successful,
		"failed":     failed,
	})

	writeJSON(w, http.StatusOK, models.BatchOrderResponse{
		BaseResponse: ok(""),
		Results:      results,
		Summary: models.BatchOrderSummary{
			Total:      len(req.Orders),
			Successful: successful,
			Failed:     failed,
		},
	})
}

// GetOrderHandler handles retrieving a single order
func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderIDStr := mux.Vars(r)["id"]
	orderID, err := strconv.ParseUint(orderIDStr, 10, 64)
	if err != nil {
		writeErrorResponse(w, models.ErrBadRequest("Invalid order ID format", map[string]interface{}{"provided_value": orderIDStr}))
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		writeErrorResponse(w, models.ErrOrderNotFoundError(orderID))
		return
	}
	if err != nil {
		logger.Error("Order lookup failed", logger.Fields{"order_id": orderID, "error": err})
		writeErrorResponse(w, models.ErrInternal("Order lookup failed"))
		return
	}

	writeJSON(w, http.StatusOK, models.GetOrderResponse{
		BaseResponse: ok(""),
		Order:        convertOrderToDTO(order),
	})
}

// GetUserOrdersHandler lists a user's orders, newest first
func (h *Handler) GetUserOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeErrorResponse(w, models.ErrBadRequest("user_id query parameter is required", map[string]interface{}{"field": "user_id"}))
		return
	}
	limit := boundedInt(r, "limit", h.limits.DefaultList, h.limits.MaxList)

	orders, err := h.orders.OrdersByUser(r.Context(), userID)
	if err != nil {
		logger.Error("Order listing failed", logger.Fields{"user_id": userID, "error": err})
		writeErrorResponse(w, models.ErrInternal("Order listing failed"))
		return
	}

	// Apply limit
	if len(orders) > limit {
		orders = orders[:limit]
	}

	orderDTOs := make([]models.OrderDTO, len(orders))
	for i, order := range orders {
		orderDTOs[i] = *convertOrderToDTO(order)
	}

	writeJSON(w, http.StatusOK, models.GetOrdersResponse{
		BaseResponse: ok(""),
		Orders:       orderDTOs,
		Count:        len(orderDTOs),
	})
}
