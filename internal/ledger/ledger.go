// Package ledger records executed trades. It is the matching engine's trade
// recorder: every trade gets a cluster-unique snowflake ID and a timestamp here,
// and is written through to the configured TradeStore before the engine moves on.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

// Ledger implements matching.TradeRecorder on top of a storage.TradeStore
type Ledger struct {
	store storage.TradeStore
	ids   *snowflake.Node
	now   func() time.Time
}

// New creates a ledger writing to store. nodeID distinguishes trade IDs minted by
// different processes and must be within 0..1023.
func New(store storage.TradeStore, nodeID int64) (*Ledger, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("ledger node %d: %w", nodeID, err)
	}
	return &Ledger{store: store, ids: node, now: time.Now}, nil
}

// Record creates, persists and returns the trade. The trade is not returned when the
// store rejects it.
func (l *Ledger) Record(ctx context.Context, symbol string, price float64, size int, buyOrderID, sellOrderID uint64) (*types.Trade, error) {
	if size <= 0 {
		return nil, fmt.Errorf("record trade: non-positive size %d", size)
	}
	if buyOrderID == sellOrderID {
		return nil, fmt.Errorf("record trade: order %d on both sides", buyOrderID)
	}

	trade := &types.Trade{
		TradeID:     uint64(l.ids.Generate().Int64()),
		Symbol:      symbol,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Size:        size,
		Timestamp:   l.now(),
	}
	if err := l.store.Save(ctx, trade); err != nil {
		return nil, fmt.Errorf("persist trade %d: %w", trade.TradeID, err)
	}
	return trade, nil
}

// LastPrice returns the price of the most recent trade of symbol
func (l *Ledger) LastPrice(ctx context.Context, symbol string) (float64, bool, error) {
	trades, err := l.store.GetRecent(ctx, symbol, 1)
	if err != nil {
		return 0, false, err
	}
	if len(trades) == 0 {
		return 0, false, nil
	}
	return trades[0].Price, true, nil
}

// AveragePrice returns the plain mean price of the last n trades of symbol, or 0
// when there are none
func (l *Ledger) AveragePrice(ctx context.Context, symbol string, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("average price: n must be positive, got %d", n)
	}
	trades, err := l.store.GetRecent(ctx, symbol, n)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, nil
	}

	var sum float64
	for _, t := range trades {
		sum += t.Price
	}
	return sum / float64(len(trades)), nil
}

// Recent returns up to limit trades, newest first. An empty symbol means all symbols.
func (l *Ledger) Recent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error) {
	return l.store.GetRecent(ctx, symbol, limit)
}

// Close closes the underlying store
func (l *Ledger) Close() error {
	return l.store.Close()
}
