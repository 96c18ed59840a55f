package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/PxPatel/matching-service/internal/storage"
	"github.com/PxPatel/matching-service/internal/types"
)

// keys: o:<20-digit id> holds the order JSON, u:<user>\x00<20-digit id> is an
// empty index entry for GetByUser
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("o:%020d", id))
}

func userPrefix(userID string) []byte {
	return []byte("u:" + userID + "\x00")
}

func userKey(userID string, id uint64) []byte {
	return append(userPrefix(userID), fmt.Sprintf("%020d", id)...)
}

// keyUpperBound returns the smallest key greater than every key with the prefix
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// OrderJournal is a local OrderStore on Pebble. It keeps the latest state of every
// order on disk, so order lookups survive a restart without external services.
type OrderJournal struct {
	db   *pebble.DB
	sync bool
}

// Options configures the journal
type Options struct {
	// Sync fsyncs every write
	Sync bool
	// InMemory keeps the database in memory, for tests
	InMemory bool
}

// NewOrderJournal opens (or creates) the journal at path
func NewOrderJournal(path string, opts Options) (*OrderJournal, error) {
	pebbleOpts := &pebble.Options{}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open pebble journal at %s: %w", path, err)
	}
	return &OrderJournal{db: db, sync: opts.Sync}, nil
}

func (j *OrderJournal) writeOpts() *pebble.WriteOptions {
	if j.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Save writes the order document and its user index entry in one batch
func (j *OrderJournal) Save(_ context.Context, order *types.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	batch := j.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(orderKey(order.ID), data, nil); err != nil {
		return err
	}
	if err := batch.Set(userKey(order.UserID, order.ID), nil, nil); err != nil {
		return err
	}
	if err := batch.Commit(j.writeOpts()); err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.ID, err)
	}
	return nil
}

func (j *OrderJournal) Get(_ context.Context, orderID uint64) (*types.Order, error) {
	data, closer, err := j.db.Get(orderKey(orderID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, storage.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	defer closer.Close()

	var order types.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order %d: %w", orderID, err)
	}
	return &order, nil
}

// GetByUser returns the user's orders, newest first
func (j *OrderJournal) GetByUser(ctx context.Context, userID string) ([]*types.Order, error) {
	prefix := userPrefix(userID)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}

	var ids []uint64
	for iter.First(); iter.Valid(); iter.Next() {
		var id uint64
		if _, err := fmt.Sscanf(string(iter.Key()[len(prefix):]), "%d", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]*types.Order, 0, len(ids))
	for _, id := range ids {
		order, err := j.Get(ctx, id)
		if errors.Is(err, storage.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	sort.SliceStable(orders, func(a, b int) bool {
		return orders[a].TimeStamp.After(orders[b].TimeStamp)
	})
	return orders, nil
}

// Close flushes and closes the database
func (j *OrderJournal) Close() error {
	return j.db.Close()
}
