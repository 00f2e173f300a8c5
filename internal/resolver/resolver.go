// Package resolver maps a normalized player slug to a profile page by probing
// numbered slug variants and checking the earliest season's school against the
// expected college.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/extract"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/names"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

var (
	// ErrNoMatch means every candidate was tried and none verified.
	ErrNoMatch = errors.New("resolver: no matching profile")
	// ErrEmptySlug means the name normalized to nothing.
	ErrEmptySlug = errors.New("resolver: empty slug")
)

// Candidate outcomes reported to metrics.
const (
	candidateAccepted = "accepted"
	candidateRejected = "rejected"
	candidateNotFound = "not_found"
	candidateError    = "error"
	candidateNoTable  = "no_history"
)

// MaxCandidatesLimit bounds how many suffix variants a config may request.
const MaxCandidatesLimit = 10

// Config controls candidate generation and verification.
type Config struct {
	BaseURL       string
	PlayerPath    string
	MaxCandidates int
	AttemptDelay  time.Duration
	// YearStat is the data-stat of the season label cell in the history table.
	YearStat string
	// AffiliationStat is the data-stat of the school cell in that table.
	AffiliationStat string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.sports-reference.com"
	}
	if c.PlayerPath == "" {
		c.PlayerPath = "/cfb/players/%s.html"
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 5
	}
	if c.MaxCandidates > MaxCandidatesLimit {
		c.MaxCandidates = MaxCandidatesLimit
	}
	if c.YearStat == "" {
		c.YearStat = "year_id"
	}
	if c.AffiliationStat == "" {
		c.AffiliationStat = "school_name"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Resolution is an accepted candidate together with the page it was verified
// against.
type Resolution struct {
	Candidate scraper.Candidate
	Page      scraper.Page
	Signal    string
	Document  *extract.Document
}

// Resolver probes candidates sequentially.
type Resolver struct {
	fetcher scraper.Fetcher
	pauser  scraper.Pauser
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Resolver. A nil pauser defaults to scraper.TimerPauser.
func New(fetcher scraper.Fetcher, pauser scraper.Pauser, cfg Config, logger *zap.Logger) *Resolver {
	if pauser == nil {
		pauser = scraper.TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher: fetcher,
		pauser:  pauser,
		cfg:     cfg.withDefaults(),
		logger:  logger.Named("resolver"),
	}
}

// Candidates lists the URLs Resolve would try for slug, in order.
func (r *Resolver) Candidates(slug string) []scraper.Candidate {
	out := make([]scraper.Candidate, 0, r.cfg.MaxCandidates)
	for i := 0; i < r.cfg.MaxCandidates; i++ {
		id := slug
		if i > 0 {
			id = fmt.Sprintf("%s-%d", slug, i)
		}
		out = append(out, scraper.Candidate{
			Slug:        slug,
			SuffixIndex: i,
			URL:         r.cfg.BaseURL + fmt.Sprintf(r.cfg.PlayerPath, id),
		})
	}
	return out
}

// Resolve returns the first candidate whose earliest listed school matches
// college. It returns ErrNoMatch when every candidate fails verification.
func (r *Resolver) Resolve(ctx context.Context, slug, college string) (Resolution, error) {
	if strings.TrimSpace(slug) == "" {
		return Resolution{}, ErrEmptySlug
	}
	logger := r.logger.With(zap.String("slug", slug), zap.String("college", college))

	var nearest string
	var nearestScore float64
	candidates := r.Candidates(slug)
	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		if i > 0 {
			r.pauser.Pause(ctx, r.cfg.AttemptDelay)
			if err := ctx.Err(); err != nil {
				return Resolution{}, err
			}
		}

		res, signal, outcome := r.try(ctx, cand, college, logger)
		metrics.ObserveCandidate(outcome)
		if outcome == candidateAccepted {
			logger.Info("candidate accepted",
				zap.String("url", cand.URL),
				zap.Int("suffix", cand.SuffixIndex),
			)
			return res, nil
		}
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
		if signal != "" {
			score := matchr.JaroWinkler(names.AlphaKey(signal), names.AlphaKey(college), false)
			if score > nearestScore {
				nearest, nearestScore = signal, score
			}
		}
	}

	fields := []zap.Field{zap.Int("candidates", len(candidates))}
	if nearest != "" {
		fields = append(fields, zap.String("closest_school", nearest), zap.Float64("similarity", nearestScore))
	}
	logger.Info("no candidate matched", fields...)
	return Resolution{}, ErrNoMatch
}

func (r *Resolver) try(
	ctx context.Context,
	cand scraper.Candidate,
	college string,
	logger *zap.Logger,
) (Resolution, string, string) {
	logger = logger.With(zap.String("url", cand.URL))
	page, err := r.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		logger.Warn("candidate fetch failed", zap.Error(err))
		return Resolution{}, "", candidateError
	}
	if page.StatusCode != http.StatusOK {
		logger.Debug("candidate not found", zap.Int("status", page.StatusCode))
		return Resolution{}, "", candidateNotFound
	}
	doc, err := extract.Parse(page.Body)
	if err != nil {
		logger.Warn("candidate parse failed", zap.Error(err))
		return Resolution{}, "", candidateError
	}
	signal, ok := r.Signal(doc)
	if !ok {
		logger.Debug("candidate has no season history")
		return Resolution{}, "", candidateNoTable
	}
	if !names.SameAffiliation(signal, college) {
		logger.Debug("candidate school mismatch", zap.String("school", signal))
		return Resolution{}, signal, candidateRejected
	}
	return Resolution{Candidate: cand, Page: page, Signal: signal, Document: doc}, signal, candidateAccepted
}

// Signal reads the school listed for the earliest season of the first
// year-indexed table in doc. Season rows without a school cell are skipped.
func (r *Resolver) Signal(doc *extract.Document) (string, bool) {
	yearSel := fmt.Sprintf(`th[data-stat=%q]`, r.cfg.YearStat)
	schoolSel := fmt.Sprintf(`td[data-stat=%q]`, r.cfg.AffiliationStat)

	table, ok := doc.FirstTable(func(t *goquery.Selection) bool {
		return t.Find("tbody "+yearSel).Length() > 0
	})
	if !ok {
		return "", false
	}
	var signal string
	var found bool
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.HasClass("thead") || row.Find(yearSel).Length() == 0 {
			return true
		}
		if strings.TrimSpace(row.Find(yearSel).First().Text()) == "" {
			return true
		}
		school := row.Find(schoolSel)
		if school.Length() == 0 {
			return true
		}
		signal = strings.Join(strings.Fields(school.First().Text()), " ")
		found = true
		return false
	})
	return signal, found
}
