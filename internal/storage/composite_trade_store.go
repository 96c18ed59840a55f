package storage

import (
	"context"
	"errors"

	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/types"
)

// CompositeTradeStore combines multiple TradeStore implementations.
// Writes go to ALL stores, reads come from the FIRST store that has data.
// Example: CompositeTradeStore([memoryStore, fileStore]) writes to both,
// reads from memory (fast), and persists to file (durable).
type CompositeTradeStore struct {
	stores []TradeStore
}

// NewCompositeTradeStore creates a composite store from multiple stores
func NewCompositeTradeStore(stores ...TradeStore) *CompositeTradeStore {
	return &CompositeTradeStore{
		stores: stores,
	}
}

func (c *CompositeTradeStore) Save(ctx context.Context, trade *types.Trade) error {
	return c.each(func(s TradeStore) error { return s.Save(ctx, trade) })
}

func (c *CompositeTradeStore) SaveBatch(ctx context.Context, trades []*types.Trade) error {
	return c.each(func(s TradeStore) error { return s.SaveBatch(ctx, trades) })
}

// each applies write to every layer; the first layer's error is returned, later
// layers are best effort
func (c *CompositeTradeStore) each(write func(TradeStore) error) error {
	var primaryErr error
	for i, store := range c.stores {
		if err := write(store); err != nil {
			if i == 0 {
				primaryErr = err
				continue
			}
			logger.Warn("Trade store layer write failed", logger.Fields{
				"layer": i + 1,
				"error": err,
			})
		}
	}
	return primaryErr
}

func (c *CompositeTradeStore) GetRecent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error) {
	// Read from first store that returns data
	for _, store := range c.stores {
		trades, err := store.GetRecent(ctx, symbol, limit)
		if err != nil {
			continue
		}
		if len(trades) > 0 {
			return trades, nil
		}
	}
	return []*types.Trade{}, nil
}

func (c *CompositeTradeStore) Close() error {
	// Close all stores
	var errs []error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
