package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PxPatel/matching-service/internal/api/models"
	"github.com/PxPatel/matching-service/internal/matching"
)

func TestAggregatePriceLevels(t *testing.T) {
	bids := []matching.PriceLevel{
		{Price: 100.04, Size: 5, OrderCount: 1},
		{Price: 100.02, Size: 3, OrderCount: 2},
		{Price: 99.96, Size: 1, OrderCount: 1},
		{Price: 99.80, Size: 7, OrderCount: 1},
	}

	t.Run("raw levels", func(t *testing.T) {
		levels := aggregatePriceLevels(bids, 0, 2)
		assert.Equal(t, []models.PriceLevel{
			{Price: 100.04, Quantity: 5, OrderCount: 1},
			{Price: 100.02, Quantity: 3, OrderCount: 2},
		}, levels)
	})

	t.Run("tick buckets", func(t *testing.T) {
		levels := aggregatePriceLevels(bids, 0.1, 10)
		assert.Equal(t, []models.PriceLevel{
			{Price: 100.0, Quantity: 9, OrderCount: 4},
			{Price: 99.8, Quantity: 7, OrderCount: 1},
		}, levels)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, aggregatePriceLevels(nil, 0.5, 10))
	})
}

func TestSpreadAndMid(t *testing.T) {
	spread, mid := spreadAndMid(100.1, 100.15)
	assert.Equal(t, 0.05, spread)
	assert.Equal(t, 100.125, mid)
}
