package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/PxPatel/matching-service/internal/types"
)

const (
	RecommendSell = "SELL"
	RecommendBuy  = "BUY"
)

var (
	// tick is the minimum price improvement over the best bid
	tick = decimal.NewFromFloat(0.01)
	// wideSpread separates a wide market from a tight one
	wideSpread = decimal.NewFromFloat(0.05)
)

// BookReader reads top of book without taking the match lock
type BookReader interface {
	BestPrice(symbol string, side types.SideType) (float64, bool)
}

// PriceHistory reports the last traded price of a symbol
type PriceHistory interface {
	LastPrice(ctx context.Context, symbol string) (float64, bool, error)
}

// Recommendation is advisory output for a client; RecommendedPrice is nil when
// there is not enough market data.
type Recommendation struct {
	Symbol             string   `json:"symbol"`
	RecommendationType string   `json:"recommendation_type"`
	Message            string   `json:"message"`
	RecommendedPrice   *float64 `json:"recommended_price"`
}

type Recommender struct {
	book   BookReader
	trades PriceHistory
}

func NewRecommender(book BookReader, trades PriceHistory) *Recommender {
	return &Recommender{book: book, trades: trades}
}

// RecommendSellPrice suggests one tick above the best bid, but never below the last
// traded price. With no bids it falls back to the last traded price.
func (r *Recommender) RecommendSellPrice(ctx context.Context, symbol string) (*Recommendation, error) {
	bestBid, hasBid := r.book.BestPrice(symbol, types.Buy)
	lastPrice, hasLast, err := r.trades.LastPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("last price for %s: %w", symbol, err)
	}

	rec := &Recommendation{Symbol: symbol, RecommendationType: RecommendSell}
	switch {
	case hasBid:
		last := decimal.Zero
		if hasLast {
			last = decimal.NewFromFloat(lastPrice)
		}
		price := decimal.Max(decimal.NewFromFloat(bestBid).Add(tick), last).InexactFloat64()
		rec.RecommendedPrice = &price
		rec.Message = fmt.Sprintf("Recommended sell price is based on the highest buy order in the market (%.2f) and recent trade price (%.2f).",
			bestBid, last.InexactFloat64())
	case hasLast:
		rec.RecommendedPrice = &lastPrice
		rec.Message = fmt.Sprintf("No active buy orders. Using recent trade price (%.2f) as reference.", lastPrice)
	default:
		rec.Message = "No market data available to recommend a sell price."
	}
	return rec, nil
}

// RecommendBuyAction compares the spread between best ask and best bid against a
// 0.05 threshold. The recommended price is the best ask whenever one exists.
func (r *Recommender) RecommendBuyAction(_ context.Context, symbol string) (*Recommendation, error) {
	bestBid, hasBid := r.book.BestPrice(symbol, types.Buy)
	bestAsk, hasAsk := r.book.BestPrice(symbol, types.Sell)

	rec := &Recommendation{Symbol: symbol, RecommendationType: RecommendBuy}
	switch {
	case !hasBid && hasAsk:
		rec.RecommendedPrice = &bestAsk
		rec.Message = fmt.Sprintf("No active buy orders. Best sell available at %v", bestAsk)
		return rec, nil
	case hasBid && !hasAsk:
		rec.Message = "No active sell orders. Hard to evaluate a buy recommendation."
		return rec, nil
	case !hasBid && !hasAsk:
		rec.Message = "Insufficient data for market analysis. No buy or sell orders present."
		return rec, nil
	}

	spread := decimal.NewFromFloat(bestAsk).Sub(decimal.NewFromFloat(bestBid))
	if spread.GreaterThan(wideSpread) {
		rec.Message = fmt.Sprintf("The spread between best sell (%.2f) and best buy (%.2f) is %.2f. Consider waiting or placing a competitive limit order.",
			bestAsk, bestBid, spread.InexactFloat64())
	} else {
		rec.Message = fmt.Sprintf("Low spread (%.2f) between best sell (%.2f) and best buy (%.2f). It may be a good time to buy.",
			spread.InexactFloat64(), bestAsk, bestBid)
	}
	rec.RecommendedPrice = &bestAsk
	return rec, nil
}
