// Package memory provides the in-process query queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan scraper.Query
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan scraper.Query, capacity),
	}
}

// Enqueue pushes a query or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, query scraper.Query) error {
	q.closeMu.Lock()
	closed := q.closed
	q.closeMu.Unlock()
	if closed {
		return scraper.ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- query:
		return nil
	}
}

// Dequeue pops the next query. After Close, queued items are still returned
// before scraper.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (scraper.Query, error) {
	select {
	case <-ctx.Done():
		return scraper.Query{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case query, ok := <-q.ch:
		if !ok {
			return scraper.Query{}, scraper.ErrQueueClosed
		}
		return query, nil
	}
}

// Len reports the number of buffered queries.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting queries.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
