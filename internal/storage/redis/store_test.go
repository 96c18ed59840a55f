package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

// testConfig points at the Redis named by REDIS_TEST_HOST; tests skip without it.
// A dedicated DB index keeps test keys away from real data.
func testConfig(t *testing.T) RedisConfig {
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}
	port := 6379
	if p, err := strconv.Atoi(os.Getenv("REDIS_TEST_PORT")); err == nil {
		port = p
	}
	return RedisConfig{
		Host:      host,
		Port:      port,
		DB:        15,
		PoolSize:  4,
		OrderTTL:  time.Minute,
		MaxOrders: 100,
		MaxTrades: 2,
	}
}

func flush(t *testing.T, cfg RedisConfig) {
	client, err := NewRedisClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	require.NoError(t, client.Close())
}

func TestRedisOrderStore(t *testing.T) {
	cfg := testConfig(t)
	flush(t, cfg)
	ctx := context.Background()

	store, err := NewRedisOrderStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	first := types.NewOrder(1, "alice", "X", types.Buy, 10.0, 5)
	second := types.NewOrder(2, "alice", "Y", types.Sell, 11.0, 3)
	second.TimeStamp = first.TimeStamp.Add(time.Millisecond)
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	first.Size = 1
	require.NoError(t, store.Save(ctx, first))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Size)
	assert.Equal(t, types.Buy, got.Side)

	orders, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, uint64(2), orders[0].ID)

	_, err = store.Get(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestRedisTradeStore(t *testing.T) {
	cfg := testConfig(t)
	flush(t, cfg)
	ctx := context.Background()

	store, err := NewRedisTradeStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, &types.Trade{
			TradeID:   uint64(i),
			Symbol:    "X",
			Price:     100.0,
			Size:      i,
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	recent, err := store.GetRecent(ctx, "X", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].TradeID)

	none, err := store.GetRecent(ctx, "Z", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
