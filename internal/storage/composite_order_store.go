package storage

import (
	"context"
	"errors"

	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/types"
)

// CompositeOrderStore combines multiple OrderStore implementations.
// Writes go to ALL stores, reads come from the FIRST store that succeeds.
// Example: CompositeOrderStore([memoryStore, redisStore, postgresStore])
// writes to all three, reads from memory (fastest), falls back to redis, then postgres.
type CompositeOrderStore struct {
	stores []OrderStore
}

// NewCompositeOrderStore creates a composite store from multiple stores
func NewCompositeOrderStore(stores ...OrderStore) *CompositeOrderStore {
	return &CompositeOrderStore{
		stores: stores,
	}
}

// Save writes through to every layer. Only the first layer's error is returned;
// failures of later layers are logged.
func (c *CompositeOrderStore) Save(ctx context.Context, order *types.Order) error {
	var primaryErr error
	for i, store := range c.stores {
		if err := store.Save(ctx, order); err != nil {
			if i == 0 {
				primaryErr = err
				continue
			}
			logger.Warn("Order store layer write failed", logger.Fields{
				"layer":    i + 1,
				"order_id": order.ID,
				"error":    err,
			})
		}
	}
	return primaryErr
}

func (c *CompositeOrderStore) Get(ctx context.Context, orderID uint64) (*types.Order, error) {
	// Read from first store that succeeds
	var errs []error
	for _, store := range c.stores {
		order, err := store.Get(ctx, orderID)
		if err == nil && order != nil {
			return order, nil
		}
		if err != nil && !errors.Is(err, ErrOrderNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(c.stores) {
		return nil, errors.Join(errs...)
	}
	return nil, ErrOrderNotFound
}

func (c *CompositeOrderStore) GetByUser(ctx context.Context, userID string) ([]*types.Order, error) {
	// Read from first store that returns data
	for _, store := range c.stores {
		orders, err := store.GetByUser(ctx, userID)
		if err != nil {
			continue
		}
		if len(orders) > 0 {
			return orders, nil
		}
	}
	return []*types.Order{}, nil
}

func (c *CompositeOrderStore) Close() error {
	// Close all stores
	var errs []error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
