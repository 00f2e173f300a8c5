// Package merge combines section tables into per-season records.
package merge

import (
	"sort"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// Merge builds one record per season label found in any table. A season only
// present in some tables carries only those tables' columns. When two tables
// produce the same prefixed column, the later table wins. Records are ordered
// by season label.
func Merge(q scraper.Query, tables ...scraper.SectionTable) []scraper.SeasonRecord {
	bySeason := make(map[string]*scraper.SeasonRecord)
	var order []string

	for _, t := range tables {
		for _, season := range seasonsOf(t) {
			row, ok := t.Rows[season]
			if !ok {
				continue
			}
			rec, exists := bySeason[season]
			if !exists {
				rec = &scraper.SeasonRecord{
					Player:    q.Player,
					DraftYear: q.DraftYear,
					College:   q.College,
					Season:    season,
					Stats:     make(map[string]string),
				}
				bySeason[season] = rec
				order = append(order, season)
			}
			for _, col := range columnsOf(t, row) {
				v, ok := row[col]
				if !ok {
					continue
				}
				if _, seen := rec.Stats[col]; !seen {
					rec.Columns = append(rec.Columns, col)
				}
				rec.Stats[col] = v
			}
		}
	}

	sort.Strings(order)
	out := make([]scraper.SeasonRecord, 0, len(order))
	for _, s := range order {
		out = append(out, *bySeason[s])
	}
	return out
}

// GroupBySeason buckets records by season label, preserving input order
// within each bucket.
func GroupBySeason(records []scraper.SeasonRecord) map[string][]scraper.SeasonRecord {
	out := make(map[string][]scraper.SeasonRecord)
	for _, r := range records {
		out[r.Season] = append(out[r.Season], r)
	}
	return out
}

func seasonsOf(t scraper.SectionTable) []string {
	if len(t.Seasons) > 0 {
		return t.Seasons
	}
	keys := make([]string, 0, len(t.Rows))
	for k := range t.Rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func columnsOf(t scraper.SectionTable, row map[string]string) []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
