// Package collyfetcher implements scraper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/policy/retry"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// Headers are added to every request.
	Headers http.Header
	// Retry repeats transient failures; nil means a single attempt.
	Retry *retry.Policy
	// Pauser waits out retry backoff; nil uses a timer.
	Pauser scraper.Pauser
}

// Waiter gates requests per host; *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements scraper.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. limiter may be nil.
func New(cfg Config, limiter Waiter) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Pauser == nil {
		cfg.Pauser = scraper.TimerPauser{}
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		baseCollector: c,
	}
}

// Fetch executes an HTTP GET. Non-2xx responses are returned as pages
// with their status code; only transport failures produce errors. With a
// retry policy, transport errors and 429/5xx responses are repeated after
// backoff until the policy gives up.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (scraper.Page, error) {
	policy := f.cfg.Retry
	for attempt := 1; ; attempt++ {
		page, err := f.fetchOnce(ctx, rawURL)
		reason := "transport"
		switch {
		case err != nil:
			if policy == nil || ctx.Err() != nil || !policy.ShouldRetry(err, attempt) {
				return scraper.Page{}, err
			}
		case policy == nil || !policy.ShouldRetryStatus(page.StatusCode, attempt):
			return page, nil
		default:
			reason = strconv.Itoa(page.StatusCode)
		}
		metrics.ObserveFetchRetry(rawURL, reason)
		f.cfg.Pauser.Pause(ctx, policy.Backoff(attempt))
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (scraper.Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return scraper.Page{}, err
		}
	}
	var (
		result   scraper.Page
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return scraper.Page{}, err
	}
	metrics.ObserveFetch(rawURL, result.StatusCode, result.Duration)
	return result, nil
}

func (f *Fetcher) buildCollector(start time.Time, result *scraper.Page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	// The same profile can appear in several draft files.
	collector.AllowURLRevisit = true
	// Not-found candidates flow through OnResponse with their status code.
	collector.ParseHTTPErrorResponse = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)

	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *scraper.Page,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = scraper.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
