package matching

import (
	"sort"
	"sync"
	"sync/atomic"
)

/*
Data structure per symbol and side: a binary heap of *Order keyed by
(price, arrival time, sequence). Only the best order matters to the matching loop,
so peek is O(1) and insert/remove are O(log n). An index from *Order to heap slot
lets a fully filled order be removed by identity rather than by position.

Symbols are created on first reference through sync.Map.LoadOrStore, which gives
the race-free insert-if-absent a first burst of submissions for a new symbol needs.
*/

// symbolBook is the pair of queues for one symbol. mu is only used when the engine
// runs in LockModeSymbol.
type symbolBook struct {
	mu   sync.Mutex
	bids *Queue
	asks *Queue
}

func (sb *symbolBook) queue(side SideType) *Queue {
	if side == Buy {
		return sb.bids
	}
	return sb.asks
}

// OrderBook holds the resting orders of every symbol
type OrderBook struct {
	symbols sync.Map // symbol -> *symbolBook
	seq     atomic.Uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// PriceLevel aggregates the resting orders at one price
type PriceLevel struct {
	Price      float64
	Size       int
	OrderCount int
}

func (ob *OrderBook) symbolBook(symbol string) *symbolBook {
	if sb, ok := ob.symbols.Load(symbol); ok {
		return sb.(*symbolBook)
	}
	sb, _ := ob.symbols.LoadOrStore(symbol, &symbolBook{
		bids: newQueue(Buy),
		asks: newQueue(Sell),
	})
	return sb.(*symbolBook)
}

func (ob *OrderBook) lookup(symbol string, side SideType) (*Queue, bool) {
	if side != Buy && side != Sell {
		return nil, false
	}
	sb, ok := ob.symbols.Load(symbol)
	if !ok {
		return nil, false
	}
	return sb.(*symbolBook).queue(side), true
}

// QueueFor returns the queue for symbol and side, creating the symbol on first use.
// Concurrent first calls for a symbol all observe the same queue.
func (ob *OrderBook) QueueFor(symbol string, side SideType) *Queue {
	return ob.symbolBook(symbol).queue(side)
}

// Stamp assigns the next arrival sequence number
func (ob *OrderBook) Stamp(order *Order) {
	order.Seq = ob.seq.Add(1)
}

// Add rests an order on its own symbol and side. Orders without remaining
// quantity are not added.
func (ob *OrderBook) Add(order *Order) bool {
	if order == nil || order.Size <= 0 {
		return false
	}
	if order.Side != Buy && order.Side != Sell {
		return false
	}
	if order.Seq == 0 {
		ob.Stamp(order)
	}
	ob.QueueFor(order.Symbol, order.Side).push(order)
	return true
}

// PeekBest returns a copy of the highest-priority resting order. An unknown symbol
// or empty side yields false, never an error.
func (ob *OrderBook) PeekBest(symbol string, side SideType) (Order, bool) {
	q, ok := ob.lookup(symbol, side)
	if !ok {
		return Order{}, false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.heap.Len() == 0 {
		return Order{}, false
	}
	return *q.heap.entries[0].order, true
}

// RemoveBest removes and returns the highest-priority resting order
func (ob *OrderBook) RemoveBest(symbol string, side SideType) (*Order, bool) {
	q, ok := ob.lookup(symbol, side)
	if !ok {
		return nil, false
	}
	return q.PopBest()
}

// BestPrice returns the price of the best resting order on a side
func (ob *OrderBook) BestPrice(symbol string, side SideType) (float64, bool) {
	best, ok := ob.PeekBest(symbol, side)
	if !ok {
		return 0.0, false
	}
	return best.Price, true
}

// Snapshot returns copies of the resting orders on a side, best first.
// It never takes the match lock.
func (ob *OrderBook) Snapshot(symbol string, side SideType) []Order {
	q, ok := ob.lookup(symbol, side)
	if !ok {
		return []Order{}
	}
	return q.Snapshot()
}

// Depth aggregates a side into price levels, best first, up to maxLevels
// (all levels when maxLevels <= 0)
func (ob *OrderBook) Depth(symbol string, side SideType, maxLevels int) []PriceLevel {
	levels := make([]PriceLevel, 0)
	for _, order := range ob.Snapshot(symbol, side) {
		n := len(levels)
		if n > 0 && levels[n-1].Price == order.Price {
			levels[n-1].Size += order.Size
			levels[n-1].OrderCount++
			continue
		}
		if maxLevels > 0 && n == maxLevels {
			break
		}
		levels = append(levels, PriceLevel{
			Price:      order.Price,
			Size:       order.Size,
			OrderCount: 1,
		})
	}
	return levels
}

// Len returns the number of resting orders on a side
func (ob *OrderBook) Len(symbol string, side SideType) int {
	q, ok := ob.lookup(symbol, side)
	if !ok {
		return 0
	}
	return q.Len()
}

// Symbols lists every symbol referenced so far, sorted
func (ob *OrderBook) Symbols() []string {
	var symbols []string
	ob.symbols.Range(func(key, _ interface{}) bool {
		symbols = append(symbols, key.(string))
		return true
	})
	sort.Strings(symbols)
	return symbols
}
