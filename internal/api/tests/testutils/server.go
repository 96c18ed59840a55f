package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/api/handlers"
	"github.com/PxPatel/matching-service/internal/api/routes"
	"github.com/PxPatel/matching-service/internal/broadcast"
	"github.com/PxPatel/matching-service/internal/ledger"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/metrics"
	"github.com/PxPatel/matching-service/internal/service"
	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/storage/file"
	"github.com/PxPatel/matching-service/internal/storage/memory"
	"github.com/PxPatel/matching-service/internal/types"
)

// DefaultSymbol is the symbol used by the request builders
const DefaultSymbol = "COOTX"

// TestServer wraps a test HTTP server with the full service stack: memory stores,
// a trade audit log, the ledger, Prometheus metrics and the WebSocket hub.
type TestServer struct {
	Server       *httptest.Server
	Engine       *matching.Engine
	Orders       *memory.InMemoryOrderStore
	Metrics      *metrics.Prometheus
	Hub          *broadcast.Hub
	TradeLogPath string
	t            testing.TB
	ledger       *ledger.Ledger
	cancel       context.CancelFunc
}

// NewTestServer creates a new test server with a fresh engine
func NewTestServer(t testing.TB) *TestServer {
	return NewTestServerWithLockMode(t, matching.LockModeSide)
}

// NewTestServerWithLockMode creates a test server whose engine uses mode
func NewTestServerWithLockMode(t testing.TB, mode matching.LockMode) *TestServer {
	tradeLogPath := filepath.Join(t.TempDir(), "test_trades.log")
	tradeLog, err := file.NewFileTradeStore(tradeLogPath)
	require.NoError(t, err)

	orders := memory.NewInMemoryOrderStore(10000)
	trades := storage.NewCompositeTradeStore(memory.NewInMemoryTradeStore(10000), tradeLog)

	l, err := ledger.New(trades, 1)
	require.NoError(t, err)
	ids, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := broadcast.NewHub(broadcast.HubConfig{})
	go hub.Run(ctx)

	prom := metrics.NewPrometheus()
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{
		Orders:    orders,
		Ledger:    l,
		Metrics:   prom,
		Publisher: hub,
		LockMode:  mode,
	})

	h := handlers.NewHandler(
		service.NewOrderService(engine, orders, ids, prom),
		engine,
		l,
		service.NewRecommender(engine.GetOrderBook(), l),
		handlers.DefaultLimits(),
	)
	handler := routes.SetupRoutes(h, routes.Options{
		Metrics:   prom.Handler(),
		WebSocket: hub,
	})

	return &TestServer{
		Server:       httptest.NewServer(handler),
		Engine:       engine,
		Orders:       orders,
		Metrics:      prom,
		Hub:          hub,
		TradeLogPath: tradeLogPath,
		t:            t,
		ledger:       l,
		cancel:       cancel,
	}
}

// Close cleans up the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.cancel()
	ts.ledger.Close()
}

// URL returns the base URL for the test server
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// Get makes a GET request to the test server
func (ts *TestServer) Get(path string) *http.Response {
	resp, err := http.Get(ts.URL() + path)
	require.NoError(ts.t, err, "GET request failed")
	return resp
}

// Post makes a POST request with JSON body
func (ts *TestServer) Post(path string, body interface{}) *http.Response {
	jsonBody, err := json.Marshal(body)
	require.NoError(ts.t, err, "Failed to marshal request body")

	resp, err := http.Post(ts.URL()+path, "application/json", bytes.NewBuffer(jsonBody))
	require.NoError(ts.t, err, "POST request failed")
	return resp
}

// DecodeJSON decodes JSON response into target
func DecodeJSON(t testing.TB, resp *http.Response, target interface{}) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")

	err = json.Unmarshal(body, target)
	require.NoError(t, err, "Failed to decode JSON response: %s", string(body))
}

// ReadTradeLog reads the trade log file and returns trades
func (ts *TestServer) ReadTradeLog() []types.Trade {
	data, err := os.ReadFile(ts.TradeLogPath)
	if err != nil {
		return []types.Trade{}
	}

	var trades []types.Trade
	decoder := json.NewDecoder(bytes.NewReader(data))
	for {
		var trade types.Trade
		if err := decoder.Decode(&trade); err == io.EOF {
			break
		} else if err != nil {
			ts.t.Fatalf("Failed to decode trade: %v", err)
		}
		trades = append(trades, trade)
	}
	return trades
}

// GetOrderBookDepth returns the number of price levels per side of symbol
func (ts *TestServer) GetOrderBookDepth(symbol string) (bidLevels, askLevels int) {
	book := ts.Engine.GetOrderBook()
	return len(book.Depth(symbol, types.Buy, 0)), len(book.Depth(symbol, types.Sell, 0))
}

// RestingQuantity sums the remaining size of every order on one side of symbol
func (ts *TestServer) RestingQuantity(symbol string, side types.SideType) int {
	total := 0
	for _, o := range ts.Engine.GetOrderBook().Snapshot(symbol, side) {
		total += o.Size
	}
	return total
}
