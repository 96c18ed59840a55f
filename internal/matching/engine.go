package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PxPatel/matching-service/internal/logger"
)

// ErrInvalidOrder is returned for orders that cannot enter the matching loop
var ErrInvalidOrder = errors.New("invalid order")

// LockMode selects the synchronization unit of a match
type LockMode int

const (
	// LockModeSide locks only the opposite queue of the incoming order. A BUY and a
	// SELL for the same symbol can match concurrently.
	LockModeSide LockMode = iota
	// LockModeSymbol serializes every match on a symbol, covering both sides and
	// the resting of the remainder.
	LockModeSymbol
)

func (m LockMode) String() string {
	if m == LockModeSymbol {
		return "symbol"
	}
	return "side"
}

// ParseLockMode converts "side" or "symbol" to a LockMode
func ParseLockMode(mode string) (LockMode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "side", "":
		return LockModeSide, nil
	case "symbol":
		return LockModeSymbol, nil
	default:
		return LockModeSide, fmt.Errorf("unknown lock mode %q", mode)
	}
}

// EngineConfig wires the engine to its collaborators. Nil fields fall back to
// no-op implementations; a nil Ledger numbers trades in-process.
type EngineConfig struct {
	Orders    OrderSaver
	Ledger    TradeRecorder
	Metrics   MetricsRecorder
	Publisher TradePublisher
	LockMode  LockMode
}

// Engine matches incoming limit orders against the book. It holds no state of its
// own beyond the book.
type Engine struct {
	orderBook *OrderBook
	orders    OrderSaver
	ledger    TradeRecorder
	metrics   MetricsRecorder
	publisher TradePublisher
	lockMode  LockMode
}

// MatchResult is the outcome of one Match call. Order is a copy of the incoming
// order taken before it was rested.
type MatchResult struct {
	Trades []*Trade
	Order  Order
	Rested bool
}

func NewEngine() *Engine {
	return NewEngineWithConfig(&EngineConfig{})
}

func NewEngineWithConfig(cfg *EngineConfig) *Engine {
	e := &Engine{
		orderBook: NewOrderBook(),
		orders:    cfg.Orders,
		ledger:    cfg.Ledger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		lockMode:  cfg.LockMode,
	}
	if e.orders == nil {
		e.orders = nopSaver{}
	}
	if e.ledger == nil {
		e.ledger = &localRecorder{}
	}
	if e.metrics == nil {
		e.metrics = NopMetrics{}
	}
	return e
}

// GetOrderBook exposes the book for read paths
func (e *Engine) GetOrderBook() *OrderBook {
	return e.orderBook
}

// LockMode returns the configured synchronization unit
func (e *Engine) LockMode() LockMode {
	return e.lockMode
}

// Stamp assigns the arrival sequence number of a new order
func (e *Engine) Stamp(order *Order) {
	e.orderBook.Stamp(order)
}

// Match crosses incoming against the book and returns the trades in match order
func (e *Engine) Match(ctx context.Context, incoming *Order) ([]*Trade, error) {
	result, err := e.MatchOrder(ctx, incoming)
	if result == nil {
		return nil, err
	}
	return result.Trades, err
}

// MatchOrder crosses incoming against the opposite queue of its symbol, holding that
// queue's match lock for the whole sweep, then rests any remainder on its own side.
//
// If the ledger or order store fails, the trades produced so far are returned with
// the error. Quantities already applied in memory are not rolled back, and the
// remainder is not rested since it may still cross the book.
func (e *Engine) MatchOrder(ctx context.Context, incoming *Order) (*MatchResult, error) {
	if !incoming.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, describeInvalid(incoming))
	}
	if incoming.Size == 0 {
		return &MatchResult{Order: *incoming}, nil
	}

	start := time.Now()
	defer func() {
		e.metrics.RecordLatency(time.Since(start))
	}()

	sb := e.orderBook.symbolBook(incoming.Symbol)
	if e.lockMode == LockModeSymbol {
		sb.mu.Lock()
		defer sb.mu.Unlock()
	}
	if incoming.Seq == 0 {
		e.orderBook.Stamp(incoming)
	}

	trades, err := e.sweep(ctx, incoming, sb.queue(incoming.Side.Opposite()))
	e.publish(ctx, trades)
	if err != nil {
		logger.Error("Match aborted", logger.Fields{
			"order_id": incoming.ID,
			"symbol":   incoming.Symbol,
			"trades":   len(trades),
			"error":    err,
		})
		return &MatchResult{Trades: trades, Order: *incoming}, err
	}

	result := &MatchResult{Trades: trades}
	if incoming.Size > 0 {
		result.Order = *incoming
		result.Rested = true
		sb.queue(incoming.Side).push(incoming)
	} else {
		incoming.Active = false
		result.Order = *incoming
		if err := e.orders.Save(ctx, incoming); err != nil {
			return result, fmt.Errorf("save filled order %d: %w", incoming.ID, err)
		}
	}

	logger.Debug("Order matched", logger.Fields{
		"order_id":  incoming.ID,
		"symbol":    incoming.Symbol,
		"side":      incoming.Side.String(),
		"trades":    len(trades),
		"remaining": result.Order.Size,
		"rested":    result.Rested,
	})
	return result, nil
}

// sweep runs the crossing loop under the opposite queue's match lock
func (e *Engine) sweep(ctx context.Context, incoming *Order, opposite *Queue) ([]*Trade, error) {
	opposite.lock()
	defer opposite.unlock()

	var trades []*Trade
	for incoming.Size > 0 {
		top, ok := opposite.Peek()
		if !ok {
			break
		}
		// The queue is price ordered: once the best order does not cross, none will
		if !crosses(incoming, top) {
			break
		}

		fillSize := min(incoming.Size, top.Size)

		buyID, sellID := top.ID, incoming.ID
		if incoming.Side == Buy {
			buyID, sellID = incoming.ID, top.ID
		}

		// Always execute at resting order price
		trade, err := e.ledger.Record(ctx, incoming.Symbol, top.Price, fillSize, buyID, sellID)
		if err != nil {
			return trades, fmt.Errorf("record trade: %w", err)
		}
		trades = append(trades, trade)
		e.metrics.IncrementTradeCount()

		incoming.Size -= fillSize
		opposite.fill(top, fillSize)

		if err := e.orders.Save(ctx, top); err != nil {
			return trades, fmt.Errorf("save resting order %d: %w", top.ID, err)
		}
		if err := e.orders.Save(ctx, incoming); err != nil {
			return trades, fmt.Errorf("save incoming order %d: %w", incoming.ID, err)
		}
	}
	return trades, nil
}

func crosses(incoming, resting *Order) bool {
	if incoming.Side == Buy {
		return incoming.Price >= resting.Price // Buy at or above ask
	}
	return incoming.Price <= resting.Price // Sell at or below bid
}

// publish hands trades to the broadcaster in match order, outside the match lock
func (e *Engine) publish(ctx context.Context, trades []*Trade) {
	if e.publisher == nil {
		return
	}
	for _, trade := range trades {
		if err := e.publisher.Publish(ctx, trade); err != nil {
			logger.Warn("Trade broadcast failed", logger.Fields{
				"trade_id": trade.TradeID,
				"symbol":   trade.Symbol,
				"error":    err,
			})
		}
	}
}

func describeInvalid(o *Order) string {
	switch {
	case o == nil:
		return "nil order"
	case o.Symbol == "":
		return "empty symbol"
	case o.Side != Buy && o.Side != Sell:
		return "unknown side"
	case o.Price <= 0:
		return fmt.Sprintf("non-positive price %v", o.Price)
	default:
		return fmt.Sprintf("negative size %d", o.Size)
	}
}
