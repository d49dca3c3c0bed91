package tilegen

import "sync"

// Queue is an unbounded FIFO with join semantics. Consumers may put new
// items while processing, so it never blocks producers.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	pending int
	closed  bool
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends an item. Every Put must be matched by a Done.
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.pending++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Get blocks until an item is available. It returns false once the queue
// is closed and drained.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Done marks one item as processed.
func (q *Queue[T]) Done() {
	q.mu.Lock()
	q.pending--
	n := q.pending
	q.mu.Unlock()
	if n == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every item put has been marked done.
func (q *Queue[T]) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.cond.Wait()
	}
}

// Close wakes all blocked consumers. Items still queued are handed out
// before Get starts returning false.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
