// Package metrics exposes Prometheus collectors for the season pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal               *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	fetchRetriesTotal          *prometheus.CounterVec
	candidateAttemptsTotal     *prometheus.CounterVec
	queriesTotal               *prometheus.CounterVec
	recordsStoredTotal         *prometheus.CounterVec
	sectionRowsTotal           *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_fetches_total",
				Help: "Total number of page fetches, labeled by site and status code.",
			},
			[]string{"site", "code"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cfbcrawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_fetch_retries_total",
				Help: "Fetch attempts repeated after a transient failure, labeled by site and reason.",
			},
			[]string{"site", "reason"},
		)

		candidateAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_candidate_attempts_total",
				Help: "Candidate profile attempts, labeled by result (accepted, rejected, not_found, no_history, error).",
			},
			[]string{"result"},
		)

		queriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_queries_total",
				Help: "Processed player queries, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_records_stored_total",
				Help: "Season records appended to the store, labeled by season.",
			},
			[]string{"season"},
		)

		sectionRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfbcrawler_section_rows_total",
				Help: "Season rows parsed per stats section.",
			},
			[]string{"section"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cfbcrawler_active_workers",
				Help: "Number of workers currently processing a query.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cfbcrawler_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served by the status API, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of status API latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(rawURL string, code int, duration time.Duration) {
	Init()
	site := SanitizeSite(rawURL)
	fetchesTotal.WithLabelValues(site, strconv.Itoa(code)).Inc()
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveFetchRetry records a repeated fetch. reason is a status code or
// "transport".
func ObserveFetchRetry(rawURL, reason string) {
	Init()
	fetchRetriesTotal.WithLabelValues(SanitizeSite(rawURL), reason).Inc()
}

// ObserveCandidate records the result of one resolution attempt.
func ObserveCandidate(result string) {
	Init()
	candidateAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveQuery records a finished query.
func ObserveQuery(outcome string) {
	Init()
	queriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecordsStored adds appended records for a season.
func ObserveRecordsStored(season string, n int) {
	Init()
	if n > 0 {
		recordsStoredTotal.WithLabelValues(season).Add(float64(n))
	}
}

// ObserveSectionRows adds parsed rows for a section.
func ObserveSectionRows(section string, n int) {
	Init()
	if n > 0 {
		sectionRowsTotal.WithLabelValues(section).Add(float64(n))
	}
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one status API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
