package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/types"
)

// aggregatePriceLevels buckets book levels to a tick size. Levels arrive best
// first and rounding keeps that order, so equal buckets are always adjacent.
func aggregatePriceLevels(raw []matching.PriceLevel, tickSize float64, maxDepth int) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, len(raw))
	tick := decimal.NewFromFloat(tickSize)

	for _, level := range raw {
		price := level.Price
		if tickSize > 0 {
			// Round to nearest tick
			price = decimal.NewFromFloat(level.Price).Div(tick).Round(0).Mul(tick).InexactFloat64()
		}

		n := len(levels)
		if n > 0 && levels[n-1].Price == price {
			levels[n-1].Quantity += level.Size
			levels[n-1].OrderCount += level.OrderCount
			continue
		}
		if n == maxDepth {
			break
		}
		levels = append(levels, models.PriceLevel{
			Price:      price,
			Quantity:   level.Size,
			OrderCount: level.OrderCount,
		})
	}
	return levels
}

func spreadAndMid(bid, ask float64) (float64, float64) {
	b, a := decimal.NewFromFloat(bid), decimal.NewFromFloat(ask)
	return a.Sub(b).InexactFloat64(), a.Add(b).Div(decimal.NewFromInt(2)).InexactFloat64()
}

// GetOrderBookHandler handles full order book snapshot requests
func (h *Handler) GetOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	depth := boundedInt(r, "depth", h.limits.DefaultDepth, h.limits.MaxDepth)

	// Parse tick size for aggregation
	tickSize := 0.0
	if aggregateStr := r.URL.Query().Get("aggregate"); aggregateStr != "" {
		parsedTick, err := strconv.ParseFloat(aggregateStr, 64)
		if err == nil && parsedTick > 0 {
			tickSize = parsedTick
		}
	}

	book := h.engine.GetOrderBook()
	bids := aggregatePriceLevels(book.Depth(symbol, types.Buy, 0), tickSize, depth)
	asks := aggregatePriceLevels(book.Depth(symbol, types.Sell, 0), tickSize, depth)

	response := models.OrderBookResponse{
		BaseResponse: ok(""),
		Symbol:       symbol,
		Bids:         bids,
		Asks:         asks,
	}
	if len(bids) > 0 && len(asks) > 0 {
		response.Spread, response.MidPrice = spreadAndMid(bids[0].Price, asks[0].Price)
	}

	writeJSON(w, http.StatusOK, response)
}

// GetTopOfBookHandler handles best bid/ask requests
func (h *Handler) GetTopOfBookHandler(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	book := h.engine.GetOrderBook()

	bestQuote := func(side types.SideType) *models.BestQuote {
		levels := book.Depth(symbol, side, 1)
		if len(levels) == 0 {
			return nil
		}
		return &models.BestQuote{Price: levels[0].Price, Quantity: levels[0].Size}
	}

	response := models.TopOfBookResponse{
		BaseResponse: ok(""),
		Symbol:       symbol,
		BestBid:      bestQuote(types.Buy),
		BestAsk:      bestQuote(types.Sell),
	}
	if response.BestBid != nil && response.BestAsk != nil {
		response.Spread, response.MidPrice = spreadAndMid(response.BestBid.Price, response.BestAsk.Price)
	}

	writeJSON(w, http.StatusOK, response)
}

// GetSymbolsHandler lists every symbol that has received an order
func (h *Handler) GetSymbolsHandler(w http.ResponseWriter, r *http.Request) {
	symbols := h.engine.GetOrderBook().Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, models.SymbolsResponse{
		BaseResponse: ok(""),
		Symbols:      symbols,
	})
}
