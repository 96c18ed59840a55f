package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/service"
)

type recommendFunc func(ctx context.Context, symbol string) (*service.Recommendation, error)

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request, fn recommendFunc) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeErrorResponse(w, models.ErrInvalidSymbolError(symbol))
		return
	}

	rec, err := fn(r.Context(), symbol)
	if err != nil {
		logger.Error("Recommendation failed", logger.Fields{"symbol": symbol, "error": err})
		writeErrorResponse(w, models.ErrInternal("Recommendation unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, models.RecommendationResponse{
		BaseResponse:       ok(rec.Message),
		Symbol:             rec.Symbol,
		RecommendationType: rec.RecommendationType,
		RecommendedPrice:   rec.RecommendedPrice,
	})
}

// RecommendSellPriceHandler suggests a sell price for ?symbol=
func (h *Handler) RecommendSellPriceHandler(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, h.recommender.RecommendSellPrice)
}

// RecommendBuyActionHandler evaluates the spread for a buyer of ?symbol=
func (h *Handler) RecommendBuyActionHandler(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, h.recommender.RecommendBuyAction)
}
