package scraper

import (
	"strconv"
	"time"
)

// Output column names injected into every SeasonRecord.
const (
	ColumnPlayer    = "Player"
	ColumnDraftYear = "Draft Year"
	ColumnSeason    = "Season"
	ColumnCollege   = "College"
)

// MetadataColumns lists the injected columns in output order.
var MetadataColumns = []string{ColumnPlayer, ColumnDraftYear, ColumnSeason, ColumnCollege}

// Query identifies one player to resolve.
type Query struct {
	Player    string
	DraftYear int
	College   string
	// Source is the input file the query came from. Used for logging only.
	Source string
}

// Candidate is one guess at the profile page for a slug.
type Candidate struct {
	Slug        string
	SuffixIndex int
	URL         string
}

// Page is a fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Section names a stats table on a profile page and the prefix applied to
// its columns.
type Section struct {
	ID     string `mapstructure:"id"`
	Prefix string `mapstructure:"prefix"`
}

// SectionTable holds the parsed rows of one section, keyed by season label.
// Column names already carry the section prefix.
type SectionTable struct {
	Section string
	Prefix  string
	// Columns is the prefixed column order from the header row.
	Columns []string
	// Seasons is the season label order as it appeared in the table.
	Seasons []string
	Rows    map[string]map[string]string
}

// Len returns the number of parsed seasons.
func (t SectionTable) Len() int {
	return len(t.Rows)
}

// SeasonRecord is the merged output row for one player and one season.
type SeasonRecord struct {
	Player    string
	DraftYear int
	College   string
	Season    string
	// Columns is the stat column order; Stats holds the values.
	Columns []string
	Stats   map[string]string
}

// Fields renders the record as parallel column/value slices with the
// metadata columns first.
func (r SeasonRecord) Fields() ([]string, []string) {
	cols := make([]string, 0, len(MetadataColumns)+len(r.Columns))
	vals := make([]string, 0, cap(cols))
	cols = append(cols, MetadataColumns...)
	vals = append(vals, r.Player, strconv.Itoa(r.DraftYear), r.Season, r.College)
	for _, c := range r.Columns {
		cols = append(cols, c)
		vals = append(vals, r.Stats[c])
	}
	return cols, vals
}

// Outcome classifies how a query finished.
type Outcome string

// Query outcomes.
const (
	OutcomeStored       Outcome = "stored"
	OutcomeNoSections   Outcome = "no_sections"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeUnresolvable Outcome = "unresolvable"
	OutcomeFailed       Outcome = "failed"
)

// Result describes a processed query.
type Result struct {
	Query    Query
	Outcome  Outcome
	URL      string
	Records  int
	Duration time.Duration
	Err      error
}
