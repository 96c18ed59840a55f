package storage

import (
	"context"
	"errors"

	"github.com/PxPatel/matching-service/internal/types"
)

// ErrOrderNotFound is returned by OrderStore.Get when no order has the given ID
var ErrOrderNotFound = errors.New("order not found")

// OrderStore abstracts order storage and retrieval operations.
// Implementations can be in-memory (map), Redis, PostgreSQL, Pebble, etc.
type OrderStore interface {
	// Save upserts the order keyed by its ID. The matching engine calls it several
	// times per order, so it must be idempotent.
	Save(ctx context.Context, order *types.Order) error

	// Get retrieves an order by ID, or ErrOrderNotFound
	Get(ctx context.Context, orderID uint64) (*types.Order, error)

	// GetByUser returns all orders for a specific user
	GetByUser(ctx context.Context, userID string) ([]*types.Order, error)

	// Close releases any resources held by the store
	Close() error
}

// TradeStore abstracts trade storage and retrieval operations.
// Implementations can be in-memory buffer, file log, Redis, PostgreSQL, etc.
type TradeStore interface {
	// Save persists a single trade
	Save(ctx context.Context, trade *types.Trade) error

	// SaveBatch persists multiple trades (useful for database batch inserts)
	SaveBatch(ctx context.Context, trades []*types.Trade) error

	// GetRecent retrieves up to limit of the most recent trades, newest first.
	// An empty symbol returns trades of every symbol.
	GetRecent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error)

	// Close releases any resources held by the store
	Close() error
}
