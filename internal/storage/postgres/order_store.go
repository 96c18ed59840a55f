package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

const orderColumns = `order_id, user_id, symbol, side, price, size, initial_size, seq, active, created_at`

// PostgresOrderStore implements OrderStore using PostgreSQL
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStore creates a new PostgreSQL-backed order store
func NewPostgresOrderStore(cfg PostgresConfig) (*PostgresOrderStore, error) {
	pool, err := OpenPool(cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresOrderStore{pool: pool}, nil
}

// NewPostgresOrderStoreWithPool builds the store on an already migrated pool
func NewPostgresOrderStoreWithPool(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{pool: pool}
}

// Save upserts the order. Only the mutable columns change on conflict.
func (s *PostgresOrderStore) Save(ctx context.Context, order *types.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO orders (` + orderColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (order_id) DO UPDATE SET
			size = EXCLUDED.size,
			active = EXCLUDED.active,
			seq = EXCLUDED.seq,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		int64(order.ID), order.UserID, order.Symbol, int16(order.Side), order.Price,
		order.Size, order.InitialSize, int64(order.Seq), order.Active, order.TimeStamp, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("postgres save order %d: %w", order.ID, err)
	}
	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, orderID uint64) (*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order, err := scanOrder(s.pool.QueryRow(ctx, query, int64(orderID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, storage.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresOrderStore) GetByUser(ctx context.Context, userID string) ([]*types.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, order_id DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*types.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *PostgresOrderStore) Close() error {
	s.pool.Close()
	return nil
}

// scanOrder reads one row laid out as orderColumns
func scanOrder(row pgx.Row) (*types.Order, error) {
	var (
		order   types.Order
		id, seq int64
		side    int16
	)
	err := row.Scan(
		&id, &order.UserID, &order.Symbol, &side, &order.Price,
		&order.Size, &order.InitialSize, &seq, &order.Active, &order.TimeStamp,
	)
	if err != nil {
		return nil, err
	}
	order.ID = uint64(id)
	order.Seq = uint64(seq)
	order.Side = types.SideType(side)
	return &order, nil
}
