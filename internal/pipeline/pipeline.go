// Package pipeline runs one player query through resolution, extraction,
// merging and storage.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/extract"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/merge"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/names"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// DefaultSections are the stats tables merged into each season record.
var DefaultSections = []scraper.Section{
	{ID: "passing", Prefix: "Pass_"},
	{ID: "rushing_and_receiving", Prefix: "Rush_"},
}

// Resolver finds the profile page for a slug.
type Resolver interface {
	Resolve(ctx context.Context, slug, college string) (resolver.Resolution, error)
}

// Config controls extraction and archiving.
type Config struct {
	Sections []scraper.Section
	// ArchivePrefix is prepended to archived page paths.
	ArchivePrefix string
	ContentType   string
}

// Deps are the collaborators of a Processor. Archive, Hasher and Clock are
// optional; without Archive no pages are kept.
type Deps struct {
	Resolver Resolver
	Store    scraper.SeasonStore
	Archive  scraper.BlobStore
	Hasher   scraper.Hasher
	Clock    scraper.Clock
	RunID    string
}

// Processor handles a single query end to end.
type Processor struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Processor.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Processor, error) {
	if deps.Resolver == nil {
		return nil, errors.New("pipeline: resolver is required")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Archive != nil && deps.Hasher == nil {
		return nil, errors.New("pipeline: hasher is required when archiving")
	}
	if len(cfg.Sections) == 0 {
		cfg.Sections = DefaultSections
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{deps: deps, cfg: cfg, logger: logger.Named("pipeline")}, nil
}

// Process resolves q, extracts its season tables and appends the merged
// records to the store. Failures are reported in the Result, never returned.
func (p *Processor) Process(ctx context.Context, q scraper.Query) scraper.Result {
	start := time.Now()
	res := p.process(ctx, q)
	res.Query = q
	res.Duration = time.Since(start)
	metrics.ObserveQuery(string(res.Outcome))
	return res
}

func (p *Processor) process(ctx context.Context, q scraper.Query) scraper.Result {
	logger := p.logger.With(
		zap.String("player", q.Player),
		zap.Int("draft_year", q.DraftYear),
		zap.String("college", q.College),
	)
	slug := names.Slug(q.Player)
	if slug == "" {
		logger.Warn("player name is unresolvable")
		return scraper.Result{Outcome: scraper.OutcomeUnresolvable, Err: resolver.ErrEmptySlug}
	}
	logger = logger.With(zap.String("slug", slug))

	resolution, err := p.deps.Resolver.Resolve(ctx, slug, q.College)
	switch {
	case errors.Is(err, resolver.ErrNoMatch):
		logger.Info("no profile matched")
		return scraper.Result{Outcome: scraper.OutcomeNoMatch, Err: err}
	case errors.Is(err, resolver.ErrEmptySlug):
		return scraper.Result{Outcome: scraper.OutcomeUnresolvable, Err: err}
	case err != nil:
		logger.Error("resolve failed", zap.Error(err))
		return scraper.Result{Outcome: scraper.OutcomeFailed, Err: fmt.Errorf("resolve: %w", err)}
	}
	url := resolution.Candidate.URL
	logger = logger.With(zap.String("url", url))

	p.archive(ctx, slug, resolution.Page, logger)

	doc := resolution.Document
	if doc == nil {
		doc, err = extract.Parse(resolution.Page.Body)
		if err != nil {
			return scraper.Result{Outcome: scraper.OutcomeFailed, URL: url, Err: err}
		}
	}

	tables := make([]scraper.SectionTable, 0, len(p.cfg.Sections))
	for _, section := range p.cfg.Sections {
		tbl, ok := extract.Extract(doc, section)
		if !ok {
			logger.Debug("section not found", zap.String("section", section.ID))
			continue
		}
		metrics.ObserveSectionRows(section.ID, tbl.Len())
		tables = append(tables, tbl)
	}

	records := merge.Merge(q, tables...)
	if len(records) == 0 {
		logger.Info("profile has no season rows", zap.Int("sections", len(tables)))
		return scraper.Result{Outcome: scraper.OutcomeNoSections, URL: url}
	}
	if err := p.store(ctx, records); err != nil {
		logger.Error("store records failed", zap.Error(err))
		return scraper.Result{Outcome: scraper.OutcomeFailed, URL: url, Err: err}
	}
	logger.Info("player stored", zap.Int("records", len(records)), zap.Int("sections", len(tables)))
	return scraper.Result{Outcome: scraper.OutcomeStored, URL: url, Records: len(records)}
}

func (p *Processor) store(ctx context.Context, records []scraper.SeasonRecord) error {
	groups := merge.GroupBySeason(records)
	seasons := make([]string, 0, len(groups))
	for s := range groups {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)
	for _, s := range seasons {
		if err := p.deps.Store.Append(ctx, s, groups[s]); err != nil {
			return fmt.Errorf("append season %s: %w", s, err)
		}
	}
	return nil
}

func (p *Processor) archive(ctx context.Context, slug string, page scraper.Page, logger *zap.Logger) {
	if p.deps.Archive == nil {
		return
	}
	hash, err := p.deps.Hasher.Hash(page.Body)
	if err != nil {
		logger.Warn("hash page failed", zap.Error(err))
		return
	}
	path := p.archivePath(slug, hash)
	uri, err := p.deps.Archive.PutObject(ctx, path, p.cfg.ContentType, bytes.NewReader(page.Body))
	if err != nil {
		logger.Warn("archive page failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Debug("page archived", zap.String("uri", uri))
}

func (p *Processor) archivePath(slug, hash string) string {
	parts := make([]string, 0, 4)
	if prefix := strings.Trim(p.cfg.ArchivePrefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	if p.deps.Clock != nil {
		parts = append(parts, p.deps.Clock.Now().Format("2006-01-02"))
	}
	if p.deps.RunID != "" {
		parts = append(parts, p.deps.RunID)
	}
	parts = append(parts, fmt.Sprintf("%s-%s.html", slug, hash))
	return strings.Join(parts, "/")
}
