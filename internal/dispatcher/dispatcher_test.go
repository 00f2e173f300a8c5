package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/queue/memory"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/worker"
)

type countingProcessor struct {
	mu    sync.Mutex
	count int
}

func (p *countingProcessor) Process(_ context.Context, q scraper.Query) scraper.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return scraper.Result{Query: q, Outcome: scraper.OutcomeStored}
}

type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}

func TestDispatcherProcessDrainsQueue(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	proc := &countingProcessor{}
	workers := []*worker.Worker{
		worker.New(q, proc, nil, noPause{}, worker.Config{ID: 1}, zap.NewNop()),
		worker.New(q, proc, nil, noPause{}, worker.Config{ID: 2}, zap.NewNop()),
	}
	queries := make([]scraper.Query, 10)
	for i := range queries {
		queries[i] = scraper.Query{Player: "p"}
	}

	require.NoError(t, New(q, workers).Process(context.Background(), queries))
	require.Equal(t, 10, proc.count)
}

func TestDispatcherProcessStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(q, nil).Process(ctx, []scraper.Query{{Player: "p"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	d := New(&errorQueue{err: errors.New("boom")}, nil)
	err := d.Enqueue(context.Background(), scraper.Query{Player: "p"})
	require.EqualError(t, err, "queue enqueue: boom")
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, scraper.Query) error { return q.err }

func (q *errorQueue) Dequeue(context.Context) (scraper.Query, error) {
	return scraper.Query{}, scraper.ErrQueueClosed
}

func (q *errorQueue) Close() {}
