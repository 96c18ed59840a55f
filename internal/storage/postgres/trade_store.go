package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PxPatel/matching-service/internal/types"
)

const insertTrade = `
	INSERT INTO trades (trade_id, symbol, buy_order_id, sell_order_id, price, quantity, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (trade_id) DO NOTHING
`

// PostgresTradeStore implements TradeStore using PostgreSQL. Trade IDs come from the
// ledger, so re-inserting a trade is a no-op.
type PostgresTradeStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTradeStore creates a new PostgreSQL-backed trade store
func NewPostgresTradeStore(cfg PostgresConfig) (*PostgresTradeStore, error) {
	pool, err := OpenPool(cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresTradeStore{pool: pool}, nil
}

// NewPostgresTradeStoreWithPool builds the store on an already migrated pool
func NewPostgresTradeStoreWithPool(pool *pgxpool.Pool) *PostgresTradeStore {
	return &PostgresTradeStore{pool: pool}
}

func tradeArgs(trade *types.Trade) []any {
	return []any{
		int64(trade.TradeID), trade.Symbol, int64(trade.BuyOrderID), int64(trade.SellOrderID),
		trade.Price, trade.Size, trade.Timestamp,
	}
}

func (s *PostgresTradeStore) Save(ctx context.Context, trade *types.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, insertTrade, tradeArgs(trade)...); err != nil {
		return fmt.Errorf("postgres save trade %d: %w", trade.TradeID, err)
	}
	return nil
}

func (s *PostgresTradeStore) SaveBatch(ctx context.Context, trades []*types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Use pgx batch for efficient batch inserts
	batch := &pgx.Batch{}
	for _, trade := range trades {
		batch.Queue(insertTrade, tradeArgs(trade)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(trades); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert failed at index %d: %w", i, err)
		}
	}
	return nil
}

func (s *PostgresTradeStore) GetRecent(ctx context.Context, symbol string, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT trade_id, symbol, buy_order_id, sell_order_id, price, quantity, timestamp
		FROM trades
		WHERE $1 = '' OR symbol = $1
		ORDER BY timestamp DESC, trade_id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := make([]*types.Trade, 0, limit)
	for rows.Next() {
		var (
			trade             types.Trade
			id, buyID, sellID int64
		)
		err := rows.Scan(&id, &trade.Symbol, &buyID, &sellID, &trade.Price, &trade.Size, &trade.Timestamp)
		if err != nil {
			return nil, err
		}
		trade.TradeID = uint64(id)
		trade.BuyOrderID = uint64(buyID)
		trade.SellOrderID = uint64(sellID)
		trades = append(trades, &trade)
	}
	return trades, rows.Err()
}

func (s *PostgresTradeStore) Close() error {
	s.pool.Close()
	return nil
}
