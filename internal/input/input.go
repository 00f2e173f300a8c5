// Package input reads draft-class CSV files into player queries.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

// ErrNoInputFiles is returned when the glob matches nothing.
var ErrNoInputFiles = errors.New("input: no files matched")

var leadingYear = regexp.MustCompile(`^(\d{4})`)

// Columns names the CSV headers holding each query field.
type Columns struct {
	Player  string `mapstructure:"player"`
	College string `mapstructure:"college"`
	Year    string `mapstructure:"year"`
}

// DefaultColumns matches the draft-class exports.
var DefaultColumns = Columns{Player: "Player", College: "College/Univ", Year: "Year"}

// LoadDir reads every file in dir matching glob, in name order, and returns
// one query per row with a player name.
func LoadDir(dir, glob string, cols Columns) ([]scraper.Query, error) {
	if glob == "" {
		glob = "*.csv"
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input dir %q is not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", glob, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputFiles, filepath.Join(dir, glob))
	}
	sort.Strings(files)

	var out []scraper.Query
	for _, f := range files {
		qs, err := LoadFile(f, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, qs...)
	}
	return out, nil
}

// LoadFile reads one CSV file. When the year column is missing or not a
// number, the file name's leading four digits are used instead.
func LoadFile(path string, cols Columns) ([]scraper.Query, error) {
	cols = cols.withDefaults()
	// #nosec G304 -- path comes from the configured input directory.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	qs, err := Read(f, cols, FileYear(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i := range qs {
		qs[i].Source = filepath.Base(path)
	}
	return qs, nil
}

// Read parses CSV rows from r. fallbackYear fills rows without a usable year.
func Read(r io.Reader, cols Columns, fallbackYear int) ([]scraper.Query, error) {
	cols = cols.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	playerIdx, ok := idx[cols.Player]
	if !ok {
		return nil, fmt.Errorf("missing %q column", cols.Player)
	}
	collegeIdx, hasCollege := idx[cols.College]
	yearIdx, hasYear := idx[cols.Year]

	var out []scraper.Query
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row: %w", err)
		}
		player := cell(rec, playerIdx)
		if player == "" {
			continue
		}
		q := scraper.Query{Player: player, DraftYear: fallbackYear}
		if hasCollege {
			q.College = cell(rec, collegeIdx)
		}
		if hasYear {
			if y, err := strconv.Atoi(cell(rec, yearIdx)); err == nil {
				q.DraftYear = y
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// FileYear returns the leading four-digit year of the file name, or 0.
func FileYear(path string) int {
	m := leadingYear.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

func (c Columns) withDefaults() Columns {
	if c.Player == "" {
		c.Player = DefaultColumns.Player
	}
	if c.College == "" {
		c.College = DefaultColumns.College
	}
	if c.Year == "" {
		c.Year = DefaultColumns.Year
	}
	return c
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
