package link

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of telemetry sentences.
//
// Push never blocks, so a slow consumer cannot stall the reader. Len lets the
// consumer watch for backlog.
type Queue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends sentence.
func (q *Queue) Push(sentence string) {
	q.mu.Lock()
	q.items = append(q.items, sentence)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest sentence, if any.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop waits until a sentence is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	for {
		if s, ok := q.TryPop(); ok {
			return s, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Drain removes and returns everything currently queued.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Reset discards everything queued.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Len returns the queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) popLocked() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	s := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Another waiter may be parked on the notification we consumed.
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return s, true
}
