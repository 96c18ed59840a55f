package types

import "time"

// Trade represents a matched trade between a buy and sell order.
// Price is always the resting (maker) order's price.
type Trade struct {
	TradeID     uint64    `json:"trade_id,omitempty"`
	Symbol      string    `json:"symbol"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	Price       float64   `json:"price"`
	Size        int       `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}
