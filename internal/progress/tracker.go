package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// Summary is a point-in-time view of a run.
type Summary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Outcomes   map[string]int `json:"outcomes"`
	Records    int            `json:"records"`
	// BySource counts processed queries per input file.
	BySource map[string]int `json:"by_source"`
	// Misses lists players that ended without stored records.
	Misses []Miss `json:"misses,omitempty"`
}

// Miss describes a query that did not produce records.
type Miss struct {
	Player  string `json:"player"`
	College string `json:"college"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Tracker accumulates results. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	clock   scraper.Clock
	summary Summary
}

// NewTracker starts a run summary.
func NewTracker(runID string, total int, clock scraper.Clock) *Tracker {
	return &Tracker{
		clock: clock,
		summary: Summary{
			RunID:     runID,
			StartedAt: clock.Now(),
			Total:     total,
			Outcomes:  make(map[string]int),
			BySource:  make(map[string]int),
		},
	}
}

// Record adds one processed result.
func (t *Tracker) Record(res scraper.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.summary
	s.Processed++
	s.Outcomes[string(res.Outcome)]++
	s.Records += res.Records
	if res.Query.Source != "" {
		s.BySource[res.Query.Source]++
	}
	if res.Outcome != scraper.OutcomeStored {
		m := Miss{Player: res.Query.Player, College: res.Query.College, Outcome: string(res.Outcome)}
		if res.Err != nil {
			m.Error = res.Err.Error()
		}
		s.Misses = append(s.Misses, m)
	}
}

// Finish stamps the end of the run.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.summary.FinishedAt = &now
}

// Snapshot returns a deep copy of the current summary.
func (t *Tracker) Snapshot() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.summary
	out.Outcomes = make(map[string]int, len(t.summary.Outcomes))
	for k, v := range t.summary.Outcomes {
		out.Outcomes[k] = v
	}
	out.BySource = make(map[string]int, len(t.summary.BySource))
	for k, v := range t.summary.BySource {
		out.BySource[k] = v
	}
	out.Misses = append([]Miss(nil), t.summary.Misses...)
	if t.summary.FinishedAt != nil {
		f := *t.summary.FinishedAt
		out.FinishedAt = &f
	}
	return out
}

// Sources returns the input file names seen so far, sorted.
func (s Summary) Sources() []string {
	out := make([]string, 0, len(s.BySource))
	for k := range s.BySource {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
