// Package queue provides a bounded, thread-safe FIFO of the most recent
// items.
package queue

import "sync"

// Queue keeps the newest Cap() items in insertion order. Pushing into a
// full queue overwrites the oldest item.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int // index of the oldest item
	size int
}

// New returns a queue holding at most capacity items. capacity must be
// positive; smaller values are raised to 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Push appends items and returns how many old items were overwritten.
func (q *Queue[T]) Push(items ...T) (evicted int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range items {
		tail := (q.head + q.size) % len(q.buf)
		q.buf[tail] = it
		if q.size < len(q.buf) {
			q.size++
			continue
		}
		q.head = (q.head + 1) % len(q.buf)
		evicted++
	}
	return evicted
}

// Len returns the number of retained items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity set by New.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Clear drops every item and releases references held by the buffer.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.buf)
	q.head, q.size = 0, 0
}

// Last returns a copy of the newest n items, oldest first. n <= 0 or n
// above Len returns everything.
func (q *Queue[T]) Last(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > q.size {
		n = q.size
	}
	out := make([]T, n)
	start := q.head + q.size - n
	for i := range out {
		out[i] = q.buf[(start+i)%len(q.buf)]
	}
	return out
}
