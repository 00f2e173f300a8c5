// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/input"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/policy/retry"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/resolver"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/storage/gcs"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/storage/local"
	csvstore "github.com/JakeFAU/cfb-rookie-crawler/internal/store/csv"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/store/postgres"
)

// EnvPrefix prefixes every environment override, e.g. CFBCRAWLER_STORE_OUTPUT_DIR.
const EnvPrefix = "CFBCRAWLER"

// Store backends.
const (
	StoreCSV      = "csv"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveMemory = "memory"
	ArchiveGCS    = "gcs"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Store    StoreConfig    `mapstructure:"store"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// SourceConfig locates profile pages.
type SourceConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	PlayerPath string `mapstructure:"player_path"`
	UserAgent  string `mapstructure:"user_agent"`
}

// HTTPConfig configures the fetcher.
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	// RatePerSecond caps requests per host; zero disables the limiter.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	// Retry covers transport errors and 429/5xx responses.
	Retry retry.Config `mapstructure:"retry"`
}

// ResolverConfig controls candidate probing.
type ResolverConfig struct {
	MaxCandidates   int           `mapstructure:"max_candidates"`
	AttemptDelay    time.Duration `mapstructure:"attempt_delay"`
	YearStat        string        `mapstructure:"year_stat"`
	AffiliationStat string        `mapstructure:"affiliation_stat"`
}

// ExtractConfig lists the tables merged into season records.
type ExtractConfig struct {
	Sections []scraper.Section `mapstructure:"sections"`
}

// PipelineConfig governs input and work fan-out.
type PipelineConfig struct {
	InputDir    string        `mapstructure:"input_dir"`
	InputGlob   string        `mapstructure:"input_glob"`
	Columns     input.Columns `mapstructure:"columns"`
	Concurrency int           `mapstructure:"concurrency"`
	QueryDelay  time.Duration `mapstructure:"query_delay"`
	QueueDepth  int           `mapstructure:"queue_depth"`
}

// StoreConfig selects and configures the season store.
type StoreConfig struct {
	Backend  string          `mapstructure:"backend"`
	CSV      csvstore.Config `mapstructure:",squash"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// ArchiveConfig selects where accepted profile pages are kept.
type ArchiveConfig struct {
	Backend     string       `mapstructure:"backend"`
	Prefix      string       `mapstructure:"prefix"`
	ContentType string       `mapstructure:"content_type"`
	Local       local.Config `mapstructure:"local"`
	GCS         gcs.Config   `mapstructure:"gcs"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the status server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://www.sports-reference.com")
	v.SetDefault("source.player_path", "/cfb/players/%s.html")
	v.SetDefault("source.user_agent", "Mozilla/5.0")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.rate_per_second", 0.3)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.retry.max_attempts", 3)
	v.SetDefault("http.retry.base_delay", 2*time.Second)
	v.SetDefault("http.retry.max_delay", 30*time.Second)
	v.SetDefault("resolver.max_candidates", 5)
	v.SetDefault("resolver.attempt_delay", 500*time.Millisecond)
	v.SetDefault("resolver.year_stat", "year_id")
	v.SetDefault("resolver.affiliation_stat", "school_name")
	v.SetDefault("extract.sections", []map[string]string{
		{"id": "passing", "prefix": "Pass_"},
		{"id": "rushing_and_receiving", "prefix": "Rush_"},
	})
	v.SetDefault("pipeline.input_dir", "NFL Rookie Stats")
	v.SetDefault("pipeline.input_glob", "*.csv")
	v.SetDefault("pipeline.columns.player", input.DefaultColumns.Player)
	v.SetDefault("pipeline.columns.college", input.DefaultColumns.College)
	v.SetDefault("pipeline.columns.year", input.DefaultColumns.Year)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.query_delay", time.Second)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("store.backend", StoreCSV)
	v.SetDefault("store.output_dir", "CFB Stats")
	v.SetDefault("store.dedup", false)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.table", "season_stats")
	v.SetDefault("store.postgres.create_table", false)
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("archive.local.base_dir", "archive")
	v.SetDefault("archive.gcs.bucket", "")
	v.SetDefault("archive.gcs.prefix", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if strings.Count(c.Source.PlayerPath, "%s") != 1 {
		return fmt.Errorf("source.player_path must contain exactly one %%s")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.RatePerSecond < 0 {
		return fmt.Errorf("http.rate_per_second must be >= 0")
	}
	if c.HTTP.Retry.MaxAttempts < 1 {
		return fmt.Errorf("http.retry.max_attempts must be >= 1")
	}
	if c.Resolver.MaxCandidates < 1 || c.Resolver.MaxCandidates > resolver.MaxCandidatesLimit {
		return fmt.Errorf("resolver.max_candidates must be between 1 and %d", resolver.MaxCandidatesLimit)
	}
	if c.Resolver.AttemptDelay < 0 {
		return fmt.Errorf("resolver.attempt_delay must be >= 0")
	}
	if len(c.Extract.Sections) == 0 {
		return fmt.Errorf("extract.sections must list at least one table")
	}
	for i, s := range c.Extract.Sections {
		if s.ID == "" {
			return fmt.Errorf("extract.sections[%d].id is required", i)
		}
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.QueryDelay < 0 {
		return fmt.Errorf("pipeline.query_delay must be >= 0")
	}
	switch c.Store.Backend {
	case StoreCSV:
		if c.Store.CSV.Dir == "" {
			return fmt.Errorf("store.output_dir is required for the csv backend")
		}
	case StoreMemory:
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for the postgres backend")
		}
		if c.Store.CSV.Dedup {
			return fmt.Errorf("store.dedup is not supported by the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of csv, memory, postgres", c.Store.Backend)
	}
	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.Local.BaseDir == "" {
			return fmt.Errorf("archive.local.base_dir is required for the local archive")
		}
	case ArchiveGCS:
		if c.Archive.GCS.Bucket == "" {
			return fmt.Errorf("archive.gcs.bucket is required for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, local, memory, gcs", c.Archive.Backend)
	}
	return nil
}
