// Package app builds the long-lived services for a run from configuration and
// owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/api"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/clock/system"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/config"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/cfb-rookie-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/hash/sha256"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/id/uuid"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/pipeline"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/policy/retry"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/progress"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/queue/memory"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/storage/gcs"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/storage/local"
	blobmem "github.com/JakeFAU/cfb-rookie-crawler/internal/storage/memory"
	csvstore "github.com/JakeFAU/cfb-rookie-crawler/internal/store/csv"
	storemem "github.com/JakeFAU/cfb-rookie-crawler/internal/store/memory"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/store/postgres"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/worker"
)

// App holds the services shared by every command.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	runID     string
	clock     scraper.Clock
	store     scraper.SeasonStore
	resolver  *resolver.Resolver
	processor *pipeline.Processor
	closers   []func() error
}

// New wires the fetcher, resolver, stores and pipeline described by cfg. It
// fails fast when a backend cannot be constructed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:    cfg,
		logger: logger.With(zap.String("run_id", runID)),
		runID:  runID,
		clock:  system.New(),
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	archive, err := a.openArchive(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var limiter collyfetcher.Waiter
	if cfg.HTTP.RatePerSecond > 0 {
		limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.HTTP.RatePerSecond,
			DefaultBurst: cfg.HTTP.Burst,
		})
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Source.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTP.Timeout,
		Retry:         retry.New(cfg.HTTP.Retry),
	}, limiter)

	a.resolver = resolver.New(fetcher, scraper.TimerPauser{}, resolver.Config{
		BaseURL:         cfg.Source.BaseURL,
		PlayerPath:      cfg.Source.PlayerPath,
		MaxCandidates:   cfg.Resolver.MaxCandidates,
		AttemptDelay:    cfg.Resolver.AttemptDelay,
		YearStat:        cfg.Resolver.YearStat,
		AffiliationStat: cfg.Resolver.AffiliationStat,
	}, a.logger)

	a.processor, err = pipeline.New(pipeline.Deps{
		Resolver: a.resolver,
		Store:    a.store,
		Archive:  archive,
		Hasher:   &sha256.Hasher{Length: 16},
		Clock:    a.clock,
		RunID:    runID,
	}, pipeline.Config{
		Sections:      cfg.Extract.Sections,
		ArchivePrefix: cfg.Archive.Prefix,
		ContentType:   cfg.Archive.ContentType,
	}, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.logger.Info("application services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.String("archive", cfg.Archive.Backend),
		zap.Int("concurrency", cfg.Pipeline.Concurrency),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.StoreCSV:
		s, err := csvstore.New(a.cfg.Store.CSV)
		if err != nil {
			return fmt.Errorf("init csv store: %w", err)
		}
		a.store = s
	case config.StoreMemory:
		a.store = storemem.New(a.cfg.Store.CSV.Dedup)
	case config.StorePostgres:
		s, err := postgres.New(ctx, a.cfg.Store.Postgres, a.runID)
		if err != nil {
			return fmt.Errorf("init postgres store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, func() error { s.Close(); return nil })
	default:
		return fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
	return nil
}

func (a *App) openArchive(ctx context.Context) (scraper.BlobStore, error) {
	switch a.cfg.Archive.Backend {
	case "", config.ArchiveNone:
		return nil, nil
	case config.ArchiveMemory:
		return blobmem.NewBlobStore(), nil
	case config.ArchiveLocal:
		s, err := local.New(a.cfg.Archive.Local)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return s, nil
	case config.ArchiveGCS:
		s, err := gcs.Open(ctx, a.cfg.Archive.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", a.cfg.Archive.Backend)
	}
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// RunID identifies this run in logs, archives and database rows.
func (a *App) RunID() string {
	return a.runID
}

// Resolver exposes the candidate resolver for single-player lookups.
func (a *App) Resolver() pipeline.Resolver {
	return a.resolver
}

// Store returns the configured season store.
func (a *App) Store() scraper.SeasonStore {
	return a.store
}

// Run processes queries with the configured number of workers and returns
// the final summary. The status server runs for the duration when enabled.
func (a *App) Run(ctx context.Context, queries []scraper.Query) (progress.Summary, error) {
	tracker := progress.NewTracker(a.runID, len(queries), a.clock)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serverDone := make(chan struct{})
	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := api.NewServer(tracker.Snapshot, a.logger)
		go func() {
			defer close(serverDone)
			if err := srv.ListenAndServe(runCtx, addr); err != nil {
				a.logger.Error("status server failed", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	q := memory.NewQueue(a.cfg.Pipeline.QueueDepth)
	workers := make([]*worker.Worker, 0, a.cfg.Pipeline.Concurrency)
	for i := 0; i < max(1, a.cfg.Pipeline.Concurrency); i++ {
		workers = append(workers, worker.New(q, a.processor, tracker, scraper.TimerPauser{}, worker.Config{
			ID:         i + 1,
			QueryDelay: a.cfg.Pipeline.QueryDelay,
		}, a.logger))
	}

	a.logger.Info("run started", zap.Int("queries", len(queries)), zap.Int("workers", len(workers)))
	err := dispatcher.New(q, workers).Process(runCtx, queries)
	tracker.Finish()
	cancel()
	<-serverDone

	summary := tracker.Snapshot()
	a.logger.Info("run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("records", summary.Records),
		zap.Any("outcomes", summary.Outcomes),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return summary, fmt.Errorf("dispatch queries: %w", err)
	}
	return summary, ctx.Err()
}

// Close releases backend resources and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
