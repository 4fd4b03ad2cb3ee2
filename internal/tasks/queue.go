package tasks

import "sync"

// Queue is a FIFO safe for concurrent use.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewQueue creates a queue holding items in order.
func NewQueue[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	q.Enqueue(items...)
	return q
}

// Enqueue appends items to the tail.
func (q *Queue[T]) Enqueue(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Pop removes and returns the head.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	head := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return head, true
}

// PopN removes and returns up to n items from the head.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

// Peek returns the head without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// PopAll removes and returns every pending item.
func (q *Queue[T]) PopAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Wipe discards every pending item. Items already popped are unaffected.
func (q *Queue[T]) Wipe() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
