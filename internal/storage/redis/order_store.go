package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

const (
	orderKeyPrefix    = "order:"
	userOrdersPrefix  = "user_orders:"    // Sorted set per user, score = arrival time
	ordersTimelineKey = "orders:timeline" // Sorted set for FIFO trimming
)

// RedisOrderStore implements OrderStore using Redis with FIFO eviction
type RedisOrderStore struct {
	client    *redis.Client
	orderTTL  time.Duration
	maxOrders int
}

// NewRedisOrderStore creates a new Redis-backed order store
func NewRedisOrderStore(cfg RedisConfig) (*RedisOrderStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisOrderStoreWithClient(client, cfg), nil
}

// NewRedisOrderStoreWithClient builds the store on an existing client. The store
// takes ownership of the client and closes it on Close.
func NewRedisOrderStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisOrderStore {
	return &RedisOrderStore{
		client:    client,
		orderTTL:  cfg.OrderTTL,
		maxOrders: cfg.MaxOrders,
	}
}

func orderKey(orderID uint64) string {
	return orderKeyPrefix + strconv.FormatUint(orderID, 10)
}

func (s *RedisOrderStore) Save(ctx context.Context, order *types.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %d: %w", order.ID, err)
	}

	pipe := s.client.Pipeline()

	// Store order document (upsert)
	pipe.Set(ctx, orderKey(order.ID), data, s.orderTTL)

	// Add to user index
	score := float64(order.TimeStamp.UnixNano())
	userKey := userOrdersPrefix + order.UserID
	pipe.ZAdd(ctx, userKey, redis.Z{Score: score, Member: order.ID})
	if s.orderTTL > 0 {
		pipe.Expire(ctx, userKey, s.orderTTL)
	}

	// Add to timeline sorted set for FIFO eviction (score = creation timestamp)
	pipe.ZAdd(ctx, ordersTimelineKey, redis.Z{Score: score, Member: order.ID})

	// Trim to keep only last N orders (FIFO eviction)
	if s.maxOrders > 0 {
		pipe.ZRemRangeByRank(ctx, ordersTimelineKey, 0, int64(-s.maxOrders-1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save order %d: %w", order.ID, err)
	}
	return nil
}

func (s *RedisOrderStore) Get(ctx context.Context, orderID uint64) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("order %d: %w", orderID, storage.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	var order types.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order %d: %w", orderID, err)
	}
	return &order, nil
}

// GetByUser returns the user's orders newest first. Index entries whose order
// document has expired are skipped.
func (s *RedisOrderStore) GetByUser(ctx context.Context, userID string) ([]*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	orderIDs, err := s.client.ZRevRange(ctx, userOrdersPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		keys[i] = orderKeyPrefix + id
	}
	return s.getOrdersByKeys(ctx, keys)
}

func (s *RedisOrderStore) Close() error {
	return s.client.Close()
}

// getOrdersByKeys fetches multiple orders with one MGET, preserving key order
func (s *RedisOrderStore) getOrdersByKeys(ctx context.Context, keys []string) ([]*types.Order, error) {
	orders := make([]*types.Order, 0, len(keys))
	if len(keys) == 0 {
		return orders, nil
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}

		var order types.Order
		if err := json.Unmarshal([]byte(data), &order); err != nil {
			continue
		}
		orders = append(orders, &order)
	}
	return orders, nil
}
