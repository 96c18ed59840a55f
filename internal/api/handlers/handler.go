package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/service"
	"github.com/PxPatel/matching-service/internal/types"
)

// TradeReader lists executed trades, newest first
type TradeReader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error)
}

// Limits bounds the size of list responses
type Limits struct {
	DefaultDepth int
	MaxDepth     int
	DefaultList  int
	MaxList      int
}

// DefaultLimits mirrors the API's documented defaults
func DefaultLimits() Limits {
	return Limits{
		DefaultDepth: 10,
		MaxDepth:     50,
		DefaultList:  100,
		MaxList:      1000,
	}
}

// Handler serves the REST API on top of the order service and the book's read path
type Handler struct {
	orders      *service.OrderService
	engine      *matching.Engine
	trades      TradeReader
	recommender *service.Recommender
	limits      Limits
}

// NewHandler wires the handlers to their collaborators
func NewHandler(orders *service.OrderService, engine *matching.Engine, trades TradeReader, recommender *service.Recommender, limits Limits) *Handler {
	return &Handler{
		orders:      orders,
		engine:      engine,
		trades:      trades,
		recommender: recommender,
		limits:      limits,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Response encoding failed", logger.Fields{"error": err})
	}
}

// writeErrorResponse writes an error response
func writeErrorResponse(w http.ResponseWriter, httpErr *models.HTTPError) {
	logger.Warn("Request failed", logger.Fields{
		"error_code": httpErr.Error.Code,
		"status":     httpErr.StatusCode,
	})

	writeJSON(w, httpErr.StatusCode, models.BaseResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Message:   httpErr.Error.Message,
		Error:     &httpErr.Error,
	})
}

func ok(message string) models.BaseResponse {
	return models.BaseResponse{
		Success:   true,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

// boundedInt parses a positive query parameter, falling back to def and capping at max
func boundedInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// convertSide converts string to SideType
func convertSide(side string) types.SideType {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "buy":
		return types.Buy
	case "sell":
		return types.Sell
	default:
		return types.NoActionSide
	}
}

// convertTradesToDTO converts matching trades to DTO trades
func convertTradesToDTO(trades []*types.Trade) []models.TradeDTO {
	dtos := make([]models.TradeDTO, len(trades))
	for i, trade := range trades {
		dtos[i] = models.TradeDTO{
			TradeID:     trade.TradeID,
			Symbol:      trade.Symbol,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       trade.Price,
			Quantity:    trade.Size,
			Timestamp:   trade.Timestamp,
		}
	}
	return dtos
}

func orderStatus(order *types.Order) string {
	switch {
	case order.Size == 0:
		return "filled"
	case order.Filled() > 0:
		return "partially_filled"
	default:
		return "open"
	}
}

// convertOrderToDTO converts an order to DTO
func convertOrderToDTO(order *types.Order) *models.OrderDTO {
	return &models.OrderDTO{
		OrderID:           order.ID,
		UserID:            order.UserID,
		Symbol:            order.Symbol,
		Side:              strings.ToLower(order.Side.String()),
		Price:             order.Price,
		Quantity:          order.InitialSize,
		FilledQuantity:    order.Filled(),
		RemainingQuantity: order.Size,
		Status:            orderStatus(order),
		Timestamp:         order.TimeStamp,
	}
}
