// Package memory keeps season tables in process memory for tests and dry
// runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/store"
)

// Store implements scraper.SeasonStore in memory.
type Store struct {
	mu      sync.RWMutex
	dedup   bool
	seasons map[string]*store.Table
}

// New constructs an empty Store.
func New(dedup bool) *Store {
	return &Store{
		dedup:   dedup,
		seasons: make(map[string]*store.Table),
	}
}

// Append adds records to the season's table.
func (s *Store) Append(_ context.Context, season string, records []scraper.SeasonRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.seasons[season]
	if !ok {
		tbl = &store.Table{}
		s.seasons[season] = tbl
	}
	n := tbl.Append(records, s.dedup)
	metrics.ObserveRecordsStored(season, n)
	return nil
}

// Rows returns a copy of the season's table. Unknown seasons yield an empty
// table.
func (s *Store) Rows(_ context.Context, season string) (store.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl, ok := s.seasons[season]
	if !ok {
		return store.Table{}, nil
	}
	out := store.Table{
		Columns: append([]string(nil), tbl.Columns...),
		Rows:    make([][]string, len(tbl.Rows)),
	}
	for i, row := range tbl.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Seasons lists the stored season labels in order.
func (s *Store) Seasons() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.seasons))
	for k := range s.seasons {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
