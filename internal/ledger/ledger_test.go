package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/storage/memory"
	"github.com/PxPatel/matching-service/internal/types"
)

type failingStore struct {
	*memory.InMemoryTradeStore
}

func (failingStore) Save(context.Context, *types.Trade) error {
	return errors.New("disk full")
}

func newLedger(t *testing.T) *Ledger {
	l, err := New(memory.NewInMemoryTradeStore(100), 1)
	require.NoError(t, err)
	return l
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	first, err := l.Record(ctx, "X", 100.0, 4, 1, 2)
	require.NoError(t, err)
	second, err := l.Record(ctx, "X", 101.0, 1, 3, 2)
	require.NoError(t, err)

	assert.NotZero(t, first.TradeID)
	assert.Greater(t, second.TradeID, first.TradeID, "snowflake IDs increase")
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, "X", first.Symbol)
	assert.Equal(t, uint64(1), first.BuyOrderID)
	assert.Equal(t, uint64(2), first.SellOrderID)

	recent, err := l.Recent(ctx, "X", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.TradeID, recent[0].TradeID)
}

func TestRecordRejectsBadTrades(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	_, err := l.Record(ctx, "X", 100.0, 0, 1, 2)
	assert.Error(t, err)
	_, err = l.Record(ctx, "X", 100.0, 1, 5, 5)
	assert.Error(t, err)
}

func TestRecordPropagatesStoreFailure(t *testing.T) {
	l, err := New(failingStore{memory.NewInMemoryTradeStore(1)}, 1)
	require.NoError(t, err)

	trade, err := l.Record(context.Background(), "X", 100.0, 1, 1, 2)
	assert.Nil(t, trade)
	assert.ErrorContains(t, err, "disk full")
}

func TestNewRejectsBadNode(t *testing.T) {
	_, err := New(memory.NewInMemoryTradeStore(1), 5000)
	assert.Error(t, err)
}

func TestLastAndAveragePrice(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	_, ok, err := l.LastPrice(ctx, "X")
	require.NoError(t, err)
	assert.False(t, ok)

	avg, err := l.AveragePrice(ctx, "X", 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	for i, price := range []float64{10.0, 20.0, 30.0} {
		_, err := l.Record(ctx, "X", price, 1, uint64(2*i+1), uint64(2*i+2))
		require.NoError(t, err)
	}
	_, err = l.Record(ctx, "Y", 999.0, 1, 100, 101)
	require.NoError(t, err)

	last, ok, err := l.LastPrice(ctx, "X")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30.0, last)

	avg, err = l.AveragePrice(ctx, "X", 2)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, avg, 1e-9)

	avg, err = l.AveragePrice(ctx, "X", 10)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, avg, 1e-9)

	_, err = l.AveragePrice(ctx, "X", 0)
	assert.Error(t, err)
}
