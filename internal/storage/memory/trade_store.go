package memory

import (
	"context"
	"sync"

	"github.com/PxPatel/matching-service/internal/types"
)

// InMemoryTradeStore implements TradeStore using a bounded buffer.
// Keeps only the N most recent trades in memory, in insertion order.
type InMemoryTradeStore struct {
	trades  []*types.Trade
	maxSize int
	mutex   sync.RWMutex
}

// NewInMemoryTradeStore creates a new in-memory trade store with a size limit
func NewInMemoryTradeStore(maxSize int) *InMemoryTradeStore {
	return &InMemoryTradeStore{
		trades:  make([]*types.Trade, 0, maxSize),
		maxSize: maxSize,
	}
}

func (s *InMemoryTradeStore) Save(ctx context.Context, trade *types.Trade) error {
	return s.SaveBatch(ctx, []*types.Trade{trade})
}

func (s *InMemoryTradeStore) SaveBatch(_ context.Context, trades []*types.Trade) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, trade := range trades {
		t := *trade
		s.trades = append(s.trades, &t)
	}

	// Trim to max size
	if s.maxSize > 0 && len(s.trades) > s.maxSize {
		s.trades = append([]*types.Trade(nil), s.trades[len(s.trades)-s.maxSize:]...)
	}

	return nil
}

// GetRecent walks the buffer backwards, so results are newest first
func (s *InMemoryTradeStore) GetRecent(_ context.Context, symbol string, limit int) ([]*types.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if limit <= 0 || limit > len(s.trades) {
		limit = len(s.trades)
	}

	result := make([]*types.Trade, 0, limit)
	for i := len(s.trades) - 1; i >= 0 && len(result) < limit; i-- {
		if symbol != "" && s.trades[i].Symbol != symbol {
			continue
		}
		t := *s.trades[i]
		result = append(result, &t)
	}
	return result, nil
}

func (s *InMemoryTradeStore) Close() error {
	// No cleanup needed for in-memory store
	return nil
}
