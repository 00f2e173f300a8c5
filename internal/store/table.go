package store

import (
	"strings"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// Table is the accumulated content of one season. Rows are aligned to
// Columns; a missing value is the empty string.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Append adds records to the table, widening Columns with any new stat
// column in first-seen order. With dedup, a row equal to an existing row in
// every column is skipped. It returns the number of rows added.
func (t *Table) Append(records []scraper.SeasonRecord, dedup bool) int {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		index[c] = i
	}
	widen := func(col string) {
		if _, ok := index[col]; ok {
			return
		}
		index[col] = len(t.Columns)
		t.Columns = append(t.Columns, col)
	}
	for _, c := range scraper.MetadataColumns {
		widen(c)
	}
	for _, r := range records {
		cols, _ := r.Fields()
		for _, c := range cols {
			widen(c)
		}
	}
	for i, row := range t.Rows {
		t.Rows[i] = pad(row, len(t.Columns))
	}

	var seen map[string]struct{}
	if dedup {
		seen = make(map[string]struct{}, len(t.Rows))
		for _, row := range t.Rows {
			seen[rowKey(row)] = struct{}{}
		}
	}

	added := 0
	for _, r := range records {
		row := make([]string, len(t.Columns))
		cols, vals := r.Fields()
		for i, c := range cols {
			row[index[c]] = vals[i]
		}
		if dedup {
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		t.Rows = append(t.Rows, row)
		added++
	}
	return added
}

// Value returns the cell for column in row i, or "" when absent.
func (t *Table) Value(i int, column string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	for j, c := range t.Columns {
		if c == column && j < len(t.Rows[i]) {
			return t.Rows[i][j]
		}
	}
	return ""
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}
