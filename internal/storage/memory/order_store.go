package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

// InMemoryOrderStore implements OrderStore using an in-memory map with FIFO eviction.
// Thread-safe for concurrent access via RWMutex.
// When maxSize is reached, oldest orders are evicted to maintain size limit.
//
// Orders are copied on the way in and out, so callers never share memory with the
// store.
type InMemoryOrderStore struct {
	orders   map[uint64]*types.Order
	orderIDs []uint64 // FIFO queue for eviction
	maxSize  int
	mutex    sync.RWMutex
}

// NewInMemoryOrderStore creates a new in-memory order store with a size limit
func NewInMemoryOrderStore(maxSize int) *InMemoryOrderStore {
	return &InMemoryOrderStore{
		orders:   make(map[uint64]*types.Order),
		orderIDs: make([]uint64, 0, maxSize),
		maxSize:  maxSize,
	}
}

func (s *InMemoryOrderStore) Save(_ context.Context, order *types.Order) error {
	if order == nil {
		return fmt.Errorf("save nil order")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.orders[order.ID]; !exists {
		s.orderIDs = append(s.orderIDs, order.ID)

		if s.maxSize > 0 && len(s.orderIDs) > s.maxSize {
			oldestID := s.orderIDs[0]
			delete(s.orders, oldestID)
			s.orderIDs = s.orderIDs[1:]
		}
	}

	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *InMemoryOrderStore) Get(_ context.Context, orderID uint64) (*types.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order %d: %w", orderID, storage.ErrOrderNotFound)
	}
	return order.Clone(), nil
}

// GetByUser returns the user's orders, newest first
func (s *InMemoryOrderStore) GetByUser(_ context.Context, userID string) ([]*types.Order, error) {
	s.mutex.RLock()
	orders := make([]*types.Order, 0)
	for _, order := range s.orders {
		if order.UserID == userID {
			orders = append(orders, order.Clone())
		}
	}
	s.mutex.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].TimeStamp.Equal(orders[j].TimeStamp) {
			return orders[i].TimeStamp.After(orders[j].TimeStamp)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// Len returns the number of orders currently held
func (s *InMemoryOrderStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.orders)
}

func (s *InMemoryOrderStore) Close() error {
	// No cleanup needed for in-memory store
	return nil
}
