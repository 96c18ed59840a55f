package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PxPatel/matching-service/internal/api/handlers"
	"github.com/PxPatel/matching-service/internal/api/middleware"
)

// Options carries the handlers mounted beside the REST API. Nil handlers are not
// mounted.
type Options struct {
	Metrics        http.Handler
	WebSocket      http.Handler
	AllowedOrigins []string
}

// SetupRoutes configures all API routes with middleware
func SetupRoutes(h *handlers.Handler, opts Options) http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// Order endpoints
	api.HandleFunc("/orders", h.SubmitOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.GetUserOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/batch", h.BatchOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", h.GetOrderHandler).Methods(http.MethodGet)

	// Order book endpoints
	api.HandleFunc("/symbols", h.GetSymbolsHandler).Methods(http.MethodGet)
	api.HandleFunc("/orderbook/{symbol}", h.GetOrderBookHandler).Methods(http.MethodGet)
	api.HandleFunc("/orderbook/{symbol}/top", h.GetTopOfBookHandler).Methods(http.MethodGet)

	// Trade endpoints
	api.HandleFunc("/trades", h.GetTradesHandler).Methods(http.MethodGet)

	// Recommendations
	api.HandleFunc("/recommend/sell-price", h.RecommendSellPriceHandler).Methods(http.MethodGet)
	api.HandleFunc("/recommend/buy-action", h.RecommendBuyActionHandler).Methods(http.MethodGet)

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	if opts.WebSocket != nil {
		router.Handle("/ws", opts.WebSocket)
	}

	// Apply middleware (order matters: Logging -> CORS -> Recovery -> Handler)
	handler := middleware.Recovery(router)
	handler = middleware.CORS(opts.AllowedOrigins)(handler)
	handler = middleware.Logging(handler)

	return handler
}
