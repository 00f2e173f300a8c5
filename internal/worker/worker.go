// Package worker implements the query processing loop.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// Processor runs one query to completion.
type Processor interface {
	Process(ctx context.Context, q scraper.Query) scraper.Result
}

// Recorder receives every finished result.
type Recorder interface {
	Record(res scraper.Result)
}

// Config controls Worker behavior.
type Config struct {
	ID int
	// QueryDelay is the pause after each processed query.
	QueryDelay time.Duration
}

// Worker consumes queries and runs them through the processor.
type Worker struct {
	queue     scraper.Queue
	processor Processor
	recorder  Recorder
	pauser    scraper.Pauser
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. recorder and pauser may be nil.
func New(
	queue scraper.Queue,
	processor Processor,
	recorder Recorder,
	pauser scraper.Pauser,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if pauser == nil {
		pauser = scraper.TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		processor: processor,
		recorder:  recorder,
		pauser:    pauser,
		cfg:       cfg,
		logger:    logger.Named("worker").With(zap.Int("worker", cfg.ID)),
	}
}

// Run blocks, consuming queries until the queue is closed and drained or the
// context finishes.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	for {
		q, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, scraper.ErrQueueClosed) || ctx.Err() != nil {
				w.logger.Debug("worker stopping")
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued query", zap.String("player", q.Player), zap.String("source", q.Source))

		res := w.processor.Process(ctx, q)
		if w.recorder != nil {
			w.recorder.Record(res)
		}
		if ctx.Err() != nil {
			return
		}
		w.pauser.Pause(ctx, w.cfg.QueryDelay)
	}
}
