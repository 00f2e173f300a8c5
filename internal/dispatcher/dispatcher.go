// Package dispatcher manages worker fan-out over the query queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/worker"
)

// ClosableQueue is a queue the dispatcher can shut once all input is fed.
type ClosableQueue interface {
	scraper.Queue
	Close()
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   ClosableQueue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue ClosableQueue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until every worker has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, q scraper.Query) error {
	if err := d.queue.Enqueue(ctx, q); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Process feeds queries to the workers in order, closes the queue and waits
// for the workers to drain it. It returns the first enqueue error, if any.
func (d *Dispatcher) Process(ctx context.Context, queries []scraper.Query) error {
	feedErr := make(chan error, 1)
	go func() {
		defer d.queue.Close()
		for _, q := range queries {
			if err := d.Enqueue(ctx, q); err != nil {
				feedErr <- err
				return
			}
		}
		feedErr <- nil
	}()
	d.Run(ctx)
	return <-feedErr
}
