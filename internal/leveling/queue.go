package leveling

import "sync"

// levelUpQueue is a bounded, thread-safe FIFO of pending notifications.
//
// Enqueue never blocks: when the queue is full the notification is dropped,
// since the level change it announces is already persisted. A buffered
// signal channel lets the consumer wait with select alongside ctx.Done().
type levelUpQueue struct {
	mu      sync.Mutex
	pending []LevelUp
	limit   int
	closed  bool
	signal  chan struct{} // Buffered, size 1
}

func newLevelUpQueue(limit int) *levelUpQueue {
	if limit < 1 {
		limit = 1
	}
	return &levelUpQueue{
		pending: make([]LevelUp, 0, min(limit, 64)),
		limit:   limit,
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends n. Returns false if the queue is full or closed.
func (q *levelUpQueue) Enqueue(n LevelUp) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.pending) >= q.limit {
		return false
	}
	q.pending = append(q.pending, n)

	// Coalesce: one pending signal is enough to wake the consumer.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the oldest notification without blocking.
func (q *levelUpQueue) TryDequeue() (LevelUp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return LevelUp{}, false
	}
	n := q.pending[0]
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	return n, true
}

// Wait returns a channel that receives when notifications may be available
// and is closed by Close.
func (q *levelUpQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending notifications.
func (q *levelUpQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting notifications. Pending ones can still be dequeued.
func (q *levelUpQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// isClosed reports whether Close was called.
func (q *levelUpQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
