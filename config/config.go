// Package config loads and validates the screener configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete screener configuration
type Config struct {
	Universe   UniverseConfig   `json:"universe" yaml:"universe"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Filters    FiltersConfig    `json:"filters" yaml:"filters"`
	Earnings   EarningsConfig   `json:"earnings" yaml:"earnings"`
	Benchmarks BenchmarksConfig `json:"benchmarks" yaml:"benchmarks"`
	Ledger     LedgerConfig     `json:"ledger" yaml:"ledger"`
	Outputs    OutputsConfig    `json:"outputs" yaml:"outputs"`
	Run        RunConfig        `json:"run" yaml:"run"`
	Schedule   ScheduleConfig   `json:"schedule" yaml:"schedule"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// UniverseConfig names the tickers to screen
type UniverseConfig struct {
	File    string   `json:"file,omitempty" yaml:"file,omitempty"`
	Tickers []string `json:"tickers,omitempty" yaml:"tickers,omitempty"`
}

// DataConfig controls bar fetching
type DataConfig struct {
	Providers    []string `json:"providers" yaml:"providers"` // tried in order; "synthetic" is the terminal fallback
	LookbackDays int      `json:"lookback_days" yaml:"lookback_days"`
}

// FiltersConfig contains the pre-filter thresholds
type FiltersConfig struct {
	MinFetchBars    int     `json:"min_fetch_bars" yaml:"min_fetch_bars"`
	MinBars         int     `json:"min_bars" yaml:"min_bars"`
	MinDollarVolume float64 `json:"min_dollar_volume" yaml:"min_dollar_volume"`
	MaxGapPct       float64 `json:"max_gap_pct" yaml:"max_gap_pct"`
	MaxRangePct     float64 `json:"max_range_pct" yaml:"max_range_pct"`
}

// EarningsConfig controls the earnings guard
type EarningsConfig struct {
	CachePath  string `json:"cache_path" yaml:"cache_path"`
	TTLDays    int    `json:"ttl_days" yaml:"ttl_days"`
	WindowDays int    `json:"window_days" yaml:"window_days"`
}

// BenchmarksConfig names the market regime indexes
type BenchmarksConfig struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
}

// LedgerConfig selects the position store backend
type LedgerConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "csv" or "sqlite"
	CSVPath string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// OutputsConfig names the run artifacts
type OutputsConfig struct {
	Dir            string `json:"dir" yaml:"dir"`
	SignalsCSV     string `json:"signals_csv" yaml:"signals_csv"`
	HighlightsText string `json:"highlights_text" yaml:"highlights_text"`
	HighlightsMD   string `json:"highlights_md" yaml:"highlights_md"`
	PayloadJSON    string `json:"payload_json" yaml:"payload_json"`
}

// RunConfig contains strategy-level parameters
type RunConfig struct {
	Strategy    string `json:"strategy" yaml:"strategy"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// ScheduleConfig drives the schedule command
type ScheduleConfig struct {
	Cron     string `json:"cron" yaml:"cron"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", yerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

var knownProviders = map[string]bool{
	"polygon": true, "finnhub": true, "yahoo": true, "synthetic": true,
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Universe.File == "" && len(c.Universe.Tickers) == 0 {
		return fmt.Errorf("universe.file or universe.tickers is required")
	}
	if len(c.Data.Providers) == 0 {
		return fmt.Errorf("data.providers is required")
	}
	for _, p := range c.Data.Providers {
		if !knownProviders[p] {
			return fmt.Errorf("unknown provider: %s", p)
		}
	}
	if c.Data.LookbackDays <= 0 {
		return fmt.Errorf("data.lookback_days must be positive")
	}
	if c.Filters.MinBars <= 0 || c.Filters.MinFetchBars <= 0 {
		return fmt.Errorf("filters.min_bars and filters.min_fetch_bars must be positive")
	}
	if c.Filters.MinDollarVolume < 0 {
		return fmt.Errorf("filters.min_dollar_volume must not be negative")
	}
	if c.Filters.MaxGapPct <= 0 || c.Filters.MaxRangePct <= 0 {
		return fmt.Errorf("filters.max_gap_pct and filters.max_range_pct must be positive")
	}
	if c.Earnings.TTLDays <= 0 {
		return fmt.Errorf("earnings.ttl_days must be positive")
	}
	if c.Earnings.WindowDays < 0 {
		return fmt.Errorf("earnings.window_days must not be negative")
	}
	if c.Benchmarks.Primary == "" || c.Benchmarks.Secondary == "" {
		return fmt.Errorf("benchmarks.primary and benchmarks.secondary are required")
	}
	if c.Ledger.Backend != "csv" && c.Ledger.Backend != "sqlite" {
		return fmt.Errorf("ledger.backend must be 'csv' or 'sqlite'")
	}
	if c.Ledger.Backend == "csv" && c.Ledger.CSVPath == "" {
		return fmt.Errorf("ledger csv_path required for CSV backend")
	}
	if c.Ledger.Backend == "sqlite" && c.Ledger.DBPath == "" {
		return fmt.Errorf("ledger db_path required for SQLite backend")
	}
	if c.Run.Strategy == "" {
		return fmt.Errorf("run.strategy is required")
	}
	if c.Run.Concurrency <= 0 {
		return fmt.Errorf("run.concurrency must be positive")
	}
	if c.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron is required")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Universe: UniverseConfig{
			File: "./watchlist.txt",
		},
		Data: DataConfig{
			Providers:    []string{"polygon", "finnhub", "yahoo", "synthetic"},
			LookbackDays: 250,
		},
		Filters: FiltersConfig{
			MinFetchBars:    30,
			MinBars:         25,
			MinDollarVolume: 5_000_000,
			MaxGapPct:       0.08,
			MaxRangePct:     0.20,
		},
		Earnings: EarningsConfig{
			CachePath:  "./data/earnings_cache.json",
			TTLDays:    3,
			WindowDays: 2,
		},
		Benchmarks: BenchmarksConfig{
			Primary:   "SPY",
			Secondary: "QQQ",
		},
		Ledger: LedgerConfig{
			Backend: "csv",
			CSVPath: "./data/ledger.csv",
		},
		Outputs: OutputsConfig{
			Dir:            "./out",
			SignalsCSV:     "out_signals.csv",
			HighlightsText: "highlights.txt",
			HighlightsMD:   "highlights.md",
			PayloadJSON:    "run.json",
		},
		Run: RunConfig{
			Strategy:    "BASE",
			Concurrency: 4,
		},
		Schedule: ScheduleConfig{
			Cron:     "45 16 * * MON-FRI",
			Timezone: "America/New_York",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Tickers resolves the universe: inline tickers win, otherwise the
// watchlist file is read one symbol per line, '#' starting a comment.
// Symbols are uppercased and deduplicated; a repeated symbol would
// otherwise be screened twice and could double-enter the ledger.
func (c *Config) Tickers() ([]string, string, error) {
	if len(c.Universe.Tickers) > 0 {
		out := make([]string, 0, len(c.Universe.Tickers))
		for _, t := range c.Universe.Tickers {
			out = append(out, strings.ToUpper(strings.TrimSpace(t)))
		}
		return dedupe(out), "config", nil
	}

	data, err := os.ReadFile(c.Universe.File)
	if err != nil {
		return nil, "", fmt.Errorf("read watchlist: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, strings.ToUpper(line))
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("watchlist %s is empty", c.Universe.File)
	}
	return dedupe(out), c.Universe.File, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, t := range in {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
