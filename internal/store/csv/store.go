// Package csvstore persists season tables as one CSV file per season label.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/metrics"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/store"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Config captures the output location.
type Config struct {
	Dir   string `mapstructure:"output_dir"`
	Dedup bool   `mapstructure:"dedup"`
}

// Store implements scraper.SeasonStore on the local filesystem. All appends
// go through one mutex so a file is never rewritten concurrently.
type Store struct {
	mu    sync.Mutex
	dir   string
	dedup bool
}

// New creates the output directory if needed.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("store.output_dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: cfg.Dir, dedup: cfg.Dedup}, nil
}

// FileName maps a season label to its file name.
func FileName(season string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(season), "_"), "._")
	if name == "" {
		name = "unknown"
	}
	return name + ".csv"
}

// Path returns the file that holds season.
func (s *Store) Path(season string) string {
	return filepath.Join(s.dir, FileName(season))
}

// Append merges records into the season file, creating it if missing.
func (s *Store) Append(ctx context.Context, season string, records []scraper.SeasonRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(season)
	tbl, err := readTable(path)
	if err != nil {
		return err
	}
	n := tbl.Append(records, s.dedup)
	if err := writeTable(path, tbl); err != nil {
		return err
	}
	metrics.ObserveRecordsStored(season, n)
	return nil
}

// Rows reads the season file. A missing file yields an empty table.
func (s *Store) Rows(_ context.Context, season string) (store.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readTable(s.Path(season))
}

// Seasons lists the season labels that have a file, by file name.
func (s *Store) Seasons() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(out)
	return out, nil
}

func readTable(path string) (store.Table, error) {
	// #nosec G304 -- path is built from the configured output dir and a sanitized name.
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return store.Table{}, nil
	}
	if err != nil {
		return store.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return store.Table{}, nil
	}
	if err != nil {
		return store.Table{}, fmt.Errorf("read header %s: %w", path, err)
	}
	tbl := store.Table{Columns: header}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return store.Table{}, fmt.Errorf("read %s: %w", path, err)
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

func writeTable(path string, tbl store.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".season-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(tbl.Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(tbl.Rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
