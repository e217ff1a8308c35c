package runtime

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO safe for many producers and consumers.
// Push never blocks. Pop blocks until an item or ctx is done.
type Queue[T any] struct {
	name  string
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func NewQueue[T any](name string) *Queue[T] {
	return &Queue[T]{name: name, ready: make(chan struct{}, 1)}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	var zero T
	if len(q.items) == 0 {
		q.mu.Unlock()
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	more := len(q.items) > 0
	q.mu.Unlock()
	if more {
		// Another consumer may be parked on ready.
		q.signal()
	}
	return item, true
}

func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryPop(); ok {
			return item, nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap is zero: the queue is unbounded.
func (q *Queue[T]) Cap() int { return 0 }

func (q *Queue[T]) Name() string { return q.name }

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
