package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PxPatel/matching-service/internal/types"
)

const (
	tradesKey          = "trades:recent"
	symbolTradesPrefix = "trades:recent:"
)

// RedisTradeStore implements TradeStore using Redis sorted sets with FIFO eviction.
// Every trade goes into a global set and a per-symbol set.
type RedisTradeStore struct {
	client    *redis.Client
	maxTrades int
}

// NewRedisTradeStore creates a new Redis-backed trade store
func NewRedisTradeStore(cfg RedisConfig) (*RedisTradeStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisTradeStoreWithClient(client, cfg), nil
}

// NewRedisTradeStoreWithClient builds the store on an existing client
func NewRedisTradeStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisTradeStore {
	return &RedisTradeStore{
		client:    client,
		maxTrades: cfg.MaxTrades,
	}
}

func (s *RedisTradeStore) Save(ctx context.Context, trade *types.Trade) error {
	return s.SaveBatch(ctx, []*types.Trade{trade})
}

func (s *RedisTradeStore) SaveBatch(ctx context.Context, trades []*types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	touched := map[string]bool{tradesKey: true}

	for _, trade := range trades {
		data, err := json.Marshal(trade)
		if err != nil {
			return fmt.Errorf("marshal trade %d: %w", trade.TradeID, err)
		}

		// score = timestamp in unix nanoseconds
		z := redis.Z{Score: float64(trade.Timestamp.UnixNano()), Member: data}
		symbolKey := symbolTradesPrefix + trade.Symbol
		pipe.ZAdd(ctx, tradesKey, z)
		pipe.ZAdd(ctx, symbolKey, z)
		touched[symbolKey] = true
	}

	// Trim to keep only last N trades
	if s.maxTrades > 0 {
		for key := range touched {
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxTrades-1))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save trades: %w", err)
	}
	return nil
}

func (s *RedisTradeStore) GetRecent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	key := tradesKey
	if symbol != "" {
		key = symbolTradesPrefix + symbol
	}

	// Get last N trades (descending order)
	results, err := s.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]*types.Trade, 0, len(results))
	for _, data := range results {
		var trade types.Trade
		if err := json.Unmarshal([]byte(data), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (s *RedisTradeStore) Close() error {
	return s.client.Close()
}
