package matching_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/matching"
)

func limitOrder(id uint64, symbol string, side matching.SideType, price float64, size int) *matching.Order {
	return matching.NewOrder(id, "user_test", symbol, side, price, size)
}

// TestNewOrderBook tests the OrderBook constructor
func TestNewOrderBook(t *testing.T) {
	ob := matching.NewOrderBook()

	if ob == nil {
		t.Fatal("NewOrderBook() returned nil")
	}

	if _, ok := ob.PeekBest("X", matching.Buy); ok {
		t.Error("Expected empty bids")
	}
	if _, ok := ob.PeekBest("X", matching.Sell); ok {
		t.Error("Expected empty asks")
	}
	if len(ob.Symbols()) != 0 {
		t.Error("PeekBest must not create symbols")
	}
}

// TestAddBidOrder tests bid priority: higher price first, then arrival
func TestAddBidOrder(t *testing.T) {
	ob := matching.NewOrderBook()

	tests := []struct {
		name    string
		order   *matching.Order
		bestID  uint64
		bestPx  float64
		restLen int
	}{
		{"SingleBid", limitOrder(1, "X", matching.Buy, 100.0, 10), 1, 100.0, 1},
		{"HigherBid", limitOrder(2, "X", matching.Buy, 101.0, 20), 2, 101.0, 2},
		{"LowerBid", limitOrder(3, "X", matching.Buy, 99.0, 15), 2, 101.0, 3},
		{"SamePriceBid", limitOrder(4, "X", matching.Buy, 101.0, 5), 2, 101.0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, ob.Add(tt.order))

			best, ok := ob.PeekBest("X", matching.Buy)
			require.True(t, ok)
			assert.Equal(t, tt.bestID, best.ID)
			assert.Equal(t, tt.bestPx, best.Price)
			assert.Equal(t, tt.restLen, ob.Len("X", matching.Buy))
		})
	}
}

// TestAddAskOrder tests ask priority: lower price first, then arrival
func TestAddAskOrder(t *testing.T) {
	ob := matching.NewOrderBook()

	tests := []struct {
		name   string
		order  *matching.Order
		bestID uint64
	}{
		{"SingleAsk", limitOrder(10, "X", matching.Sell, 102.0, 10), 10},
		{"LowerAsk", limitOrder(11, "X", matching.Sell, 101.0, 20), 11},
		{"HigherAsk", limitOrder(12, "X", matching.Sell, 103.0, 15), 11},
		{"SamePriceAsk", limitOrder(13, "X", matching.Sell, 101.0, 5), 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, ob.Add(tt.order))
			best, ok := ob.PeekBest("X", matching.Sell)
			require.True(t, ok)
			assert.Equal(t, tt.bestID, best.ID)
		})
	}
}

func TestAddRejectsEmptyOrders(t *testing.T) {
	ob := matching.NewOrderBook()

	assert.False(t, ob.Add(nil))
	assert.False(t, ob.Add(limitOrder(1, "X", matching.Buy, 100.0, 0)))
	assert.False(t, ob.Add(limitOrder(2, "X", matching.NoActionSide, 100.0, 5)))
	assert.Equal(t, 0, ob.Len("X", matching.Buy))
}

func TestTimePriorityUsesTimestampThenSequence(t *testing.T) {
	ob := matching.NewOrderBook()
	now := time.Now()

	late := limitOrder(1, "X", matching.Sell, 50.0, 1)
	late.TimeStamp = now.Add(time.Second)
	early := limitOrder(2, "X", matching.Sell, 50.0, 1)
	early.TimeStamp = now

	// Identical timestamps fall back to the order of the Add calls
	tieA := limitOrder(3, "X", matching.Sell, 51.0, 1)
	tieA.TimeStamp = now
	tieB := limitOrder(4, "X", matching.Sell, 51.0, 1)
	tieB.TimeStamp = now

	ob.Add(late)
	ob.Add(early)
	ob.Add(tieA)
	ob.Add(tieB)

	var ids []uint64
	for _, o := range ob.Snapshot("X", matching.Sell) {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []uint64{2, 1, 3, 4}, ids)
}

func TestRemoveBest(t *testing.T) {
	ob := matching.NewOrderBook()
	ob.Add(limitOrder(1, "X", matching.Buy, 100.0, 10))
	ob.Add(limitOrder(2, "X", matching.Buy, 102.0, 10))

	removed, ok := ob.RemoveBest("X", matching.Buy)
	require.True(t, ok)
	assert.Equal(t, uint64(2), removed.ID)

	best, ok := ob.PeekBest("X", matching.Buy)
	require.True(t, ok)
	assert.Equal(t, uint64(1), best.ID)

	_, ok = ob.RemoveBest("X", matching.Sell)
	assert.False(t, ok)
	_, ok = ob.RemoveBest("UNKNOWN", matching.Buy)
	assert.False(t, ok)
}

func TestSnapshotReturnsCopies(t *testing.T) {
	ob := matching.NewOrderBook()
	order := limitOrder(1, "X", matching.Buy, 100.0, 10)
	ob.Add(order)

	snap := ob.Snapshot("X", matching.Buy)
	require.Len(t, snap, 1)
	snap[0].Size = 999

	best, _ := ob.PeekBest("X", matching.Buy)
	assert.Equal(t, 10, best.Size)
	assert.Empty(t, ob.Snapshot("NOPE", matching.Buy))
}

func TestDepthAggregatesPriceLevels(t *testing.T) {
	ob := matching.NewOrderBook()
	ob.Add(limitOrder(1, "X", matching.Buy, 100.0, 10))
	ob.Add(limitOrder(2, "X", matching.Buy, 100.0, 5))
	ob.Add(limitOrder(3, "X", matching.Buy, 101.0, 7))
	ob.Add(limitOrder(4, "X", matching.Buy, 99.0, 1))

	levels := ob.Depth("X", matching.Buy, 2)
	require.Len(t, levels, 2)
	assert.Equal(t, matching.PriceLevel{Price: 101.0, Size: 7, OrderCount: 1}, levels[0])
	assert.Equal(t, matching.PriceLevel{Price: 100.0, Size: 15, OrderCount: 2}, levels[1])

	assert.Len(t, ob.Depth("X", matching.Buy, 0), 3)
}

func TestBestPrice(t *testing.T) {
	ob := matching.NewOrderBook()
	_, ok := ob.BestPrice("X", matching.Sell)
	assert.False(t, ok)

	ob.Add(limitOrder(1, "X", matching.Sell, 105.5, 1))
	ob.Add(limitOrder(2, "X", matching.Sell, 104.0, 1))

	price, ok := ob.BestPrice("X", matching.Sell)
	require.True(t, ok)
	assert.Equal(t, 104.0, price)
}

func TestQueueForConcurrentFirstAccess(t *testing.T) {
	ob := matching.NewOrderBook()

	const workers = 64
	queues := make([]*matching.Queue, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			queues[i] = ob.QueueFor("NEW", matching.Sell)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, q := range queues {
		assert.Same(t, queues[0], q)
	}
	assert.Equal(t, matching.Sell, queues[0].Side())
	assert.Equal(t, []string{"NEW"}, ob.Symbols())
}

func TestConcurrentAddsAreAllVisible(t *testing.T) {
	ob := matching.NewOrderBook()

	var wg sync.WaitGroup
	for i := 1; i <= 200; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			ob.Add(limitOrder(id, "C", matching.Buy, float64(90+id%10), 1))
		}(uint64(i))
	}
	wg.Wait()

	snap := ob.Snapshot("C", matching.Buy)
	require.Len(t, snap, 200)
	for i := 1; i < len(snap); i++ {
		assert.GreaterOrEqual(t, snap[i-1].Price, snap[i].Price)
	}
}
