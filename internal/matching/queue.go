package matching

import (
	"container/heap"
	"sort"
	"sync"
)

// priority reports whether a should be matched before b on the given side:
// better price first, then earlier arrival, then lower sequence number.
func priority(side SideType) func(a, b *Order) bool {
	betterPrice := func(a, b float64) bool { return a < b }
	if side == Buy {
		betterPrice = func(a, b float64) bool { return a > b }
	}
	return func(a, b *Order) bool {
		if a.Price != b.Price {
			return betterPrice(a.Price, b.Price)
		}
		if !a.TimeStamp.Equal(b.TimeStamp) {
			return a.TimeStamp.Before(b.TimeStamp)
		}
		return a.Seq < b.Seq
	}
}

type entry struct {
	order *Order
	index int
}

// orderHeap implements heap.Interface over resting orders
type orderHeap struct {
	entries []*entry
	less    func(a, b *Order) bool
}

func (h orderHeap) Len() int { return len(h.entries) }
func (h orderHeap) Less(i, j int) bool {
	return h.less(h.entries[i].order, h.entries[j].order)
}
func (h orderHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].index = i
	h.entries[j].index = j
}

func (h *orderHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *orderHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	e.index = -1
	return e
}

// Queue holds the resting orders of one symbol and side.
//
// matchMu is the exclusive match lock, held by Engine for a whole sweep. mu guards the
// heap itself and is only held for the duration of a single operation, so snapshot
// readers and own-side inserts never wait on a running match.
type Queue struct {
	side    SideType
	matchMu sync.Mutex

	mu      sync.RWMutex
	heap    orderHeap
	entries map[*Order]*entry
}

func newQueue(side SideType) *Queue {
	return &Queue{
		side:    side,
		heap:    orderHeap{less: priority(side)},
		entries: make(map[*Order]*entry),
	}
}

// Side returns the book side this queue holds
func (q *Queue) Side() SideType {
	return q.side
}

func (q *Queue) lock()   { q.matchMu.Lock() }
func (q *Queue) unlock() { q.matchMu.Unlock() }

func (q *Queue) push(o *Order) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := &entry{order: o}
	q.entries[o] = e
	heap.Push(&q.heap, e)
}

// Peek returns the highest-priority order without removing it
func (q *Queue) Peek() (*Order, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.heap.Len() == 0 {
		return nil, false
	}
	return q.heap.entries[0].order, true
}

// PopBest removes and returns the highest-priority order
func (q *Queue) PopBest() (*Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&q.heap).(*entry)
	delete(q.entries, e.order)
	return e.order, true
}

// fill takes qty off a resting order and drops it from the queue once exhausted.
// It removes by identity, since an own-side insert may have put a better order on
// top since the caller peeked.
func (q *Queue) fill(o *Order, qty int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	o.Size -= qty
	if o.Size > 0 {
		return false
	}
	if e, ok := q.entries[o]; ok {
		heap.Remove(&q.heap, e.index)
		delete(q.entries, o)
	}
	o.Active = false
	return true
}

// Len returns the number of resting orders
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.heap.Len()
}

// Snapshot returns copies of the resting orders, best first
func (q *Queue) Snapshot() []Order {
	q.mu.RLock()
	orders := make([]Order, len(q.heap.entries))
	for i, e := range q.heap.entries {
		orders[i] = *e.order
	}
	q.mu.RUnlock()

	less := q.heap.less
	sort.SliceStable(orders, func(i, j int) bool {
		return less(&orders[i], &orders[j])
	})
	return orders
}
