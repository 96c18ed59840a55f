package handlers

import (
	"net/http"
	"strings"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/logger"
)

// GetTradesHandler handles retrieving recent trades, optionally for one symbol
func (h *Handler) GetTradesHandler(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	limit := boundedInt(r, "limit", h.limits.DefaultList, h.limits.MaxList)

	trades, err := h.trades.Recent(r.Context(), symbol, limit)
	if err != nil {
		logger.Error("Trade listing failed", logger.Fields{"symbol": symbol, "error": err})
		writeErrorResponse(w, models.ErrInternal("Trade listing failed"))
		return
	}

	tradeDTOs := convertTradesToDTO(trades)
	writeJSON(w, http.StatusOK, models.GetTradesResponse{
		BaseResponse: ok(""),
		Trades:       tradeDTOs,
		Count:        len(tradeDTOs),
	})
}
