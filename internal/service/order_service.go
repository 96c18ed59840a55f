package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/matching"
	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

// ErrInvalidRequest is returned when a PlaceOrderRequest fails validation
var ErrInvalidRequest = errors.New("invalid order request")

// OrderCounter counts accepted orders per side
type OrderCounter interface {
	IncrementOrders(side string)
}

type nopCounter struct{}

func (nopCounter) IncrementOrders(string) {}

// PlaceOrderRequest is an order as submitted by a client, before it has an id
type PlaceOrderRequest struct {
	UserID   string
	Symbol   string
	Side     types.SideType
	Price    float64
	Quantity int
}

func (r PlaceOrderRequest) validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return fmt.Errorf("%w: empty user id", ErrInvalidRequest)
	case strings.TrimSpace(r.Symbol) == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	case r.Side != types.Buy && r.Side != types.Sell:
		return fmt.Errorf("%w: unknown side", ErrInvalidRequest)
	case r.Price <= 0:
		return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidRequest, r.Price)
	case r.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidRequest, r.Quantity)
	}
	return nil
}

// OrderService turns client requests into orders and feeds them to the engine
type OrderService struct {
	engine *matching.Engine
	orders storage.OrderStore
	ids    *snowflake.Node
	counts OrderCounter
}

// NewOrderService builds the service. counts may be nil.
func NewOrderService(engine *matching.Engine, orders storage.OrderStore, ids *snowflake.Node, counts OrderCounter) *OrderService {
	if counts == nil {
		counts = nopCounter{}
	}
	return &OrderService{
		engine: engine,
		orders: orders,
		ids:    ids,
		counts: counts,
	}
}

// PlaceOrder assigns the order its id, arrival time and sequence number, saves it
// and matches it. The engine persists every state change made during the match, so
// nothing is saved afterwards.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*matching.MatchResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	order := types.NewOrder(
		uint64(s.ids.Generate().Int64()),
		strings.TrimSpace(req.UserID),
		strings.TrimSpace(req.Symbol),
		req.Side,
		req.Price,
		req.Quantity,
	)
	order.TimeStamp = time.Now().UTC()
	s.engine.Stamp(order)

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order %d: %w", order.ID, err)
	}
	s.counts.IncrementOrders(order.Side.String())

	result, err := s.engine.MatchOrder(ctx, order)
	if err != nil {
		return result, fmt.Errorf("match order %d: %w", order.ID, err)
	}

	logger.Info("Order placed", logger.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"symbol":   order.Symbol,
		"side":     order.Side.String(),
		"price":    order.Price,
		"quantity": req.Quantity,
		"trades":   len(result.Trades),
		"rested":   result.Rested,
	})
	return result, nil
}

// GetOrder returns the latest stored state of an order
func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*types.Order, error) {
	return s.orders.Get(ctx, id)
}

// OrdersByUser lists a user's orders, newest first
func (s *OrderService) OrdersByUser(ctx context.Context, userID string) ([]*types.Order, error) {
	return s.orders.GetByUser(ctx, userID)
}
