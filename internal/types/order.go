package types

import (
	"strings"
	"time"
)

// SideType identifies the book side an order rests on
type SideType int

const (
	NoActionSide SideType = iota
	Buy
	Sell
)

func (s SideType) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side an order of this side matches against
func (s SideType) Opposite() SideType {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return NoActionSide
	}
}

// ParseSide converts "buy"/"sell" (any case) to a SideType
func ParseSide(side string) SideType {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "buy":
		return Buy
	case "sell":
		return Sell
	default:
		return NoActionSide
	}
}

// Order is a limit order. Size is the remaining quantity and only ever decreases;
// Price, TimeStamp and Seq are fixed once the order is submitted.
type Order struct {
	ID          uint64    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Symbol      string    `json:"symbol"`
	Side        SideType  `json:"side"`
	Price       float64   `json:"price"`
	Size        int       `json:"size"`
	InitialSize int       `json:"initial_size"`
	TimeStamp   time.Time `json:"timestamp"`
	Seq         uint64    `json:"seq"`
	Active      bool      `json:"active"`
}

// NewOrder creates an active order stamped with the current time
func NewOrder(id uint64, userID, symbol string, side SideType, price float64, size int) *Order {
	return &Order{
		ID:          id,
		UserID:      userID,
		Symbol:      symbol,
		Side:        side,
		Price:       price,
		Size:        size,
		InitialSize: size,
		TimeStamp:   time.Now(),
		Active:      true,
	}
}

// Filled returns the quantity executed so far
func (o *Order) Filled() int {
	return o.InitialSize - o.Size
}

// IsValid reports whether the order can enter the matching loop
func (o *Order) IsValid() bool {
	if o == nil {
		return false
	}
	if o.Symbol == "" {
		return false
	}
	if o.Side != Buy && o.Side != Sell {
		return false
	}
	return o.Price > 0 && o.Size >= 0
}

// Clone returns a copy safe to hand out to readers
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
