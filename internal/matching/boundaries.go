package matching

import (
	"context"
	"sync/atomic"
	"time"
)

// OrderSaver persists order state. Save is an idempotent upsert keyed by order ID
// and may be called several times for the same order within one match.
type OrderSaver interface {
	Save(ctx context.Context, order *Order) error
}

// TradeRecorder records a generated trade, assigning its ID and timestamp.
// It is called synchronously, in match order.
type TradeRecorder interface {
	Record(ctx context.Context, symbol string, price float64, size int, buyOrderID, sellOrderID uint64) (*Trade, error)
}

// MetricsRecorder receives fire-and-forget counters
type MetricsRecorder interface {
	IncrementTradeCount()
	RecordLatency(d time.Duration)
}

// TradePublisher notifies subscribers of a trade. Failures never affect matching.
type TradePublisher interface {
	Publish(ctx context.Context, trade *Trade) error
}

type nopSaver struct{}

func (nopSaver) Save(context.Context, *Order) error { return nil }

// NopMetrics discards all metrics
type NopMetrics struct{}

func (NopMetrics) IncrementTradeCount()        {}
func (NopMetrics) RecordLatency(time.Duration) {}

// localRecorder numbers trades in-process without storing them
type localRecorder struct {
	nextID atomic.Uint64
}

func (r *localRecorder) Record(_ context.Context, symbol string, price float64, size int, buyOrderID, sellOrderID uint64) (*Trade, error) {
	return &Trade{
		TradeID:     r.nextID.Add(1),
		Symbol:      symbol,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Size:        size,
		Timestamp:   time.Now(),
	}, nil
}
