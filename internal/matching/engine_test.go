package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/matching"
)

// recordingSaver captures every Save call
type recordingSaver struct {
	mu    sync.Mutex
	saves []matching.Order
	err   error
}

func (s *recordingSaver) Save(_ context.Context, order *matching.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, *order)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

// failingLedger fails after allowing n trades
type failingLedger struct {
	allowed int
	calls   int
}

func (l *failingLedger) Record(_ context.Context, symbol string, price float64, size int, buyID, sellID uint64) (*matching.Trade, error) {
	l.calls++
	if l.calls > l.allowed {
		return nil, errors.New("ledger unavailable")
	}
	return &matching.Trade{TradeID: uint64(l.calls), Symbol: symbol, Price: price, Size: size, BuyOrderID: buyID, SellOrderID: sellID}, nil
}

type countingMetrics struct {
	mu        sync.Mutex
	trades    int
	latencies int
}

func (m *countingMetrics) IncrementTradeCount() {
	m.mu.Lock()
	m.trades++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLatency(time.Duration) {
	m.mu.Lock()
	m.latencies++
	m.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	trades []*matching.Trade
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, trade *matching.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = append(p.trades, trade)
	return p.err
}

func sumSizes(trades []*matching.Trade) int {
	total := 0
	for _, t := range trades {
		total += t.Size
	}
	return total
}

// TestNewEngine tests the Engine constructor
func TestNewEngine(t *testing.T) {
	engine := matching.NewEngine()

	if engine == nil {
		t.Fatal("NewEngine() returned nil")
	}
	if engine.GetOrderBook() == nil {
		t.Fatal("engine has no order book")
	}
	assert.Equal(t, matching.LockModeSide, engine.LockMode())
}

// TestScenarioSequence walks the documented X scenarios in order
func TestScenarioSequence(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()
	book := engine.GetOrderBook()

	// Empty book, BUY 10 @ 100 rests
	buy := limitOrder(1, "X", matching.Buy, 100.0, 10)
	trades, err := engine.Match(ctx, buy)
	require.NoError(t, err)
	assert.Empty(t, trades)
	require.Equal(t, 1, book.Len("X", matching.Buy))
	best, _ := book.PeekBest("X", matching.Buy)
	assert.Equal(t, 10, best.Size)
	assert.True(t, best.Active)

	// SELL 4 @ 99 crosses at the resting bid's price
	sell := limitOrder(2, "X", matching.Sell, 99.0, 4)
	trades, err = engine.Match(ctx, sell)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 4, trades[0].Size)
	assert.Equal(t, uint64(1), trades[0].BuyOrderID)
	assert.Equal(t, uint64(2), trades[0].SellOrderID)
	assert.Equal(t, "X", trades[0].Symbol)

	best, _ = book.PeekBest("X", matching.Buy)
	assert.Equal(t, 6, best.Size)
	assert.False(t, sell.Active)
	assert.Equal(t, 0, book.Len("X", matching.Sell))

	// SELL 10 @ 101 does not cross and rests
	sell2 := limitOrder(3, "X", matching.Sell, 101.0, 10)
	trades, err = engine.Match(ctx, sell2)
	require.NoError(t, err)
	assert.Empty(t, trades)
	ask, ok := book.PeekBest("X", matching.Sell)
	require.True(t, ok)
	assert.Equal(t, uint64(3), ask.ID)
	assert.Equal(t, 10, ask.Size)
}

// TestTimePriorityScenario checks that equal-priced bids fill in arrival order
func TestTimePriorityScenario(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()
	book := engine.GetOrderBook()

	t1 := limitOrder(1, "Y", matching.Buy, 50.0, 15)
	t2 := limitOrder(2, "Y", matching.Buy, 50.0, 10)
	_, err := engine.Match(ctx, t1)
	require.NoError(t, err)
	_, err = engine.Match(ctx, t2)
	require.NoError(t, err)

	sell := limitOrder(3, "Y", matching.Sell, 50.0, 20)
	trades, err := engine.Match(ctx, sell)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, uint64(1), trades[0].BuyOrderID)
	assert.Equal(t, 15, trades[0].Size)
	assert.Equal(t, uint64(2), trades[1].BuyOrderID)
	assert.Equal(t, 5, trades[1].Size)

	rest, ok := book.PeekBest("Y", matching.Buy)
	require.True(t, ok)
	assert.Equal(t, uint64(2), rest.ID)
	assert.Equal(t, 5, rest.Size)
	assert.False(t, sell.Active)
	assert.False(t, t1.Active)
	assert.Equal(t, 0, book.Len("Y", matching.Sell))
}

func TestZeroQuantityIsNoOp(t *testing.T) {
	saver := &recordingSaver{}
	metrics := &countingMetrics{}
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{Orders: saver, Metrics: metrics})

	engine.Match(context.Background(), limitOrder(1, "Z", matching.Sell, 10.0, 5))
	before := saver.count()

	trades, err := engine.Match(context.Background(), limitOrder(2, "Z", matching.Buy, 10.0, 0))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, before, saver.count(), "no persistence for zero quantity")
	assert.Equal(t, 0, engine.GetOrderBook().Len("Z", matching.Buy))
	assert.Equal(t, 5, engine.GetOrderBook().Snapshot("Z", matching.Sell)[0].Size)
}

func TestInvalidOrdersRejected(t *testing.T) {
	engine := matching.NewEngine()
	tests := []struct {
		name  string
		order *matching.Order
	}{
		{"Nil", nil},
		{"EmptySymbol", limitOrder(1, "", matching.Buy, 10.0, 1)},
		{"UnknownSide", limitOrder(2, "X", matching.NoActionSide, 10.0, 1)},
		{"ZeroPrice", limitOrder(3, "X", matching.Buy, 0, 1)},
		{"NegativePrice", limitOrder(4, "X", matching.Sell, -1, 1)},
		{"NegativeSize", limitOrder(5, "X", matching.Sell, 10.0, -3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, err := engine.Match(context.Background(), tt.order)
			assert.ErrorIs(t, err, matching.ErrInvalidOrder)
			assert.Nil(t, trades)
		})
	}
	assert.Empty(t, engine.GetOrderBook().Snapshot("X", matching.Buy))
	assert.Empty(t, engine.GetOrderBook().Snapshot("X", matching.Sell))
}

func TestPricePriorityRegardlessOfInsertionOrder(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()

	engine.Match(ctx, limitOrder(1, "P", matching.Sell, 103.0, 5))
	engine.Match(ctx, limitOrder(2, "P", matching.Sell, 101.0, 5))
	engine.Match(ctx, limitOrder(3, "P", matching.Sell, 102.0, 5))

	trades, err := engine.Match(ctx, limitOrder(4, "P", matching.Buy, 103.0, 15))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, []float64{101.0, 102.0, 103.0}, []float64{trades[0].Price, trades[1].Price, trades[2].Price})
	assert.Equal(t, []uint64{2, 3, 1}, []uint64{trades[0].SellOrderID, trades[1].SellOrderID, trades[2].SellOrderID})
}

func TestSweepStopsAtFirstNonCrossingLevel(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()
	book := engine.GetOrderBook()

	engine.Match(ctx, limitOrder(1, "S", matching.Sell, 100.0, 5))
	engine.Match(ctx, limitOrder(2, "S", matching.Sell, 105.0, 5))

	buy := limitOrder(3, "S", matching.Buy, 102.0, 12)
	result, err := engine.MatchOrder(ctx, buy)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, 100.0, result.Trades[0].Price)
	assert.True(t, result.Rested)
	assert.Equal(t, 7, result.Order.Size)
	assert.True(t, result.Order.Active)

	bid, ok := book.PeekBest("S", matching.Buy)
	require.True(t, ok)
	assert.Equal(t, 102.0, bid.Price)
	assert.Equal(t, 7, bid.Size)

	ask, _ := book.PeekBest("S", matching.Sell)
	assert.Equal(t, uint64(2), ask.ID)
}

func TestMakerPriceAndConservation(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()

	engine.Match(ctx, limitOrder(1, "M", matching.Buy, 99.0, 3))
	engine.Match(ctx, limitOrder(2, "M", matching.Buy, 98.0, 4))
	engine.Match(ctx, limitOrder(3, "M", matching.Buy, 97.0, 100))

	sell := limitOrder(4, "M", matching.Sell, 95.0, 20)
	before := sell.Size
	trades, err := engine.Match(ctx, sell)
	require.NoError(t, err)

	for _, trade := range trades {
		assert.NotEqual(t, 95.0, trade.Price, "trade must execute at the resting price")
		assert.Greater(t, trade.Size, 0)
		assert.NotEqual(t, trade.BuyOrderID, trade.SellOrderID)
	}
	assert.Equal(t, before, sumSizes(trades)+sell.Size)
	assert.Equal(t, []float64{99.0, 98.0, 97.0}, []float64{trades[0].Price, trades[1].Price, trades[2].Price})
}

func TestFilledRestingOrderNeverObservable(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()
	book := engine.GetOrderBook()

	maker := limitOrder(1, "R", matching.Sell, 10.0, 5)
	engine.Match(ctx, maker)
	engine.Match(ctx, limitOrder(2, "R", matching.Buy, 10.0, 5))

	assert.False(t, maker.Active)
	assert.Equal(t, 0, maker.Size)
	_, ok := book.PeekBest("R", matching.Sell)
	assert.False(t, ok)
	_, ok = book.RemoveBest("R", matching.Sell)
	assert.False(t, ok)
}

func TestBoundariesCalledPerTrade(t *testing.T) {
	ctx := context.Background()
	saver := &recordingSaver{}
	metrics := &countingMetrics{}
	publisher := &recordingPublisher{}
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{
		Orders:    saver,
		Metrics:   metrics,
		Publisher: publisher,
	})

	engine.Match(ctx, limitOrder(1, "B", matching.Sell, 10.0, 2))
	engine.Match(ctx, limitOrder(2, "B", matching.Sell, 11.0, 2))

	trades, err := engine.Match(ctx, limitOrder(3, "B", matching.Buy, 11.0, 4))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// two saves per trade plus the final inactive save of the incoming order
	assert.Equal(t, 5, saver.count())
	last := saver.saves[len(saver.saves)-1]
	assert.Equal(t, uint64(3), last.ID)
	assert.False(t, last.Active)

	assert.Equal(t, 2, metrics.trades)
	assert.Equal(t, 3, metrics.latencies)
	require.Len(t, publisher.trades, 2)
	assert.Same(t, trades[0], publisher.trades[0])
	assert.Same(t, trades[1], publisher.trades[1])
}

func TestPublishFailureDoesNotAffectMatching(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{
		Publisher: &recordingPublisher{err: errors.New("socket closed")},
	})

	engine.Match(ctx, limitOrder(1, "F", matching.Sell, 10.0, 2))
	trades, err := engine.Match(ctx, limitOrder(2, "F", matching.Buy, 10.0, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	bid, ok := engine.GetOrderBook().PeekBest("F", matching.Buy)
	require.True(t, ok)
	assert.Equal(t, 3, bid.Size)
}

func TestLedgerFailurePropagates(t *testing.T) {
	ctx := context.Background()
	ledger := &failingLedger{allowed: 1}
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{Ledger: ledger})
	book := engine.GetOrderBook()

	engine.Match(ctx, limitOrder(1, "L", matching.Sell, 10.0, 2))
	engine.Match(ctx, limitOrder(2, "L", matching.Sell, 10.0, 2))

	buy := limitOrder(3, "L", matching.Buy, 10.0, 4)
	trades, err := engine.Match(ctx, buy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
	require.Len(t, trades, 1, "trades produced before the failure are returned")

	// the first fill stays applied, the second resting order is untouched
	assert.Equal(t, 2, buy.Size)
	ask, ok := book.PeekBest("L", matching.Sell)
	require.True(t, ok)
	assert.Equal(t, uint64(2), ask.ID)
	assert.Equal(t, 2, ask.Size)

	// the remainder is not rested, so the book is never left crossed
	assert.Equal(t, 0, book.Len("L", matching.Buy))
}

func TestOrderSaveFailurePropagates(t *testing.T) {
	ctx := context.Background()
	saver := &recordingSaver{}
	engine := matching.NewEngineWithConfig(&matching.EngineConfig{Orders: saver})

	engine.Match(ctx, limitOrder(1, "E", matching.Sell, 10.0, 5))
	saver.err = errors.New("disk full")

	trades, err := engine.Match(ctx, limitOrder(2, "E", matching.Buy, 10.0, 5))
	require.Error(t, err)
	assert.Len(t, trades, 1)
}

func TestParseLockMode(t *testing.T) {
	mode, err := matching.ParseLockMode("symbol")
	require.NoError(t, err)
	assert.Equal(t, matching.LockModeSymbol, mode)

	mode, err = matching.ParseLockMode("")
	require.NoError(t, err)
	assert.Equal(t, matching.LockModeSide, mode)

	_, err = matching.ParseLockMode("global")
	assert.Error(t, err)
}

// TestConcurrentMatchingConservesQuantity hammers one symbol from many goroutines
// and checks that every unit is accounted for exactly once.
func TestConcurrentMatchingConservesQuantity(t *testing.T) {
	for _, mode := range []matching.LockMode{matching.LockModeSide, matching.LockModeSymbol} {
		t.Run(mode.String(), func(t *testing.T) {
			ctx := context.Background()
			engine := matching.NewEngineWithConfig(&matching.EngineConfig{LockMode: mode})
			book := engine.GetOrderBook()

			const perSide = 200
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				traded   int
				tradeIDs = make(map[uint64]bool)
			)
			submit := func(id uint64, side matching.SideType) {
				defer wg.Done()
				order := limitOrder(id, "CC", side, 100.0, 3)
				trades, err := engine.Match(ctx, order)
				assert.NoError(t, err)
				mu.Lock()
				traded += sumSizes(trades)
				for _, tr := range trades {
					assert.False(t, tradeIDs[tr.TradeID], "trade id reused")
					tradeIDs[tr.TradeID] = true
				}
				mu.Unlock()
			}
			for i := 0; i < perSide; i++ {
				wg.Add(2)
				go submit(uint64(2*i+1), matching.Buy)
				go submit(uint64(2*i+2), matching.Sell)
			}
			wg.Wait()

			resting := 0
			for _, o := range book.Snapshot("CC", matching.Buy) {
				assert.Greater(t, o.Size, 0)
				resting += o.Size
			}
			for _, o := range book.Snapshot("CC", matching.Sell) {
				assert.Greater(t, o.Size, 0)
				resting += o.Size
			}
			// every traded unit consumes one unit from each side
			assert.Equal(t, 2*perSide*3, 2*traded+resting)

			if mode == matching.LockModeSymbol {
				// strict mode never leaves a crossed book behind
				bid, hasBid := book.BestPrice("CC", matching.Buy)
				ask, hasAsk := book.BestPrice("CC", matching.Sell)
				if hasBid && hasAsk {
					assert.Less(t, bid, ask)
				}
			}
		})
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	ctx := context.Background()
	engine := matching.NewEngine()

	engine.Match(ctx, limitOrder(1, "AAA", matching.Sell, 10.0, 5))
	trades, err := engine.Match(ctx, limitOrder(2, "BBB", matching.Buy, 10.0, 5))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, []string{"AAA", "BBB"}, engine.GetOrderBook().Symbols())
}
