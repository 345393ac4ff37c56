package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Ayodukale/S-B/config"
	"github.com/Ayodukale/S-B/earnings"
	"github.com/Ayodukale/S-B/feed"
	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/regime"
	"github.com/Ayodukale/S-B/report"
	"github.com/Ayodukale/S-B/screener"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen the watchlist and write the run artifacts",
	Long: `Run one end-of-day screen: fetch daily bars for every watchlist ticker,
evaluate the dual-EMA setup, update the position ledger, and write the
signals CSV, highlights text, Markdown and JSON payload.

Example:
  swingbot run -f swingbot.yaml --notify`,
	RunE: runRun,
}

var runNotify bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runNotify, "notify", false, "post highlights to configured Discord webhooks")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return executeRun(cmd.Context(), cfg, runNotify)
}

// executeRun is the full pipeline shared by run and schedule.
func executeRun(ctx context.Context, cfg *config.Config, notify bool) error {
	tickers, universeSource, err := cfg.Tickers()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	prior, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("ledger unreadable, starting from empty state")
	}

	chain := buildFeed(cfg)
	verdict := checkRegime(ctx, cfg, chain)

	cache := earnings.LoadCache(cfg.Earnings.CachePath)
	guard := earnings.NewGuard(cache, cfg.Earnings.TTLDays,
		earnings.NewFinnhub(), earnings.NewPolygon())

	sc := screener.New(screener.Config{
		Strategy:           cfg.Run.Strategy,
		LookbackDays:       cfg.Data.LookbackDays,
		MinFetchBars:       cfg.Filters.MinFetchBars,
		MinBars:            cfg.Filters.MinBars,
		MinDollarVolume:    cfg.Filters.MinDollarVolume,
		MaxGapPct:          cfg.Filters.MaxGapPct,
		MaxRangePct:        cfg.Filters.MaxRangePct,
		EarningsWindowDays: cfg.Earnings.WindowDays,
		Concurrency:        cfg.Run.Concurrency,
	}, chain, guard, verdict)

	res := sc.Run(ctx, tickers, prior)

	if err := store.Save(res.LedgerRows()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if err := cache.Save(); err != nil {
		log.Warn().Err(err).Msg("earnings cache save failed")
	}

	out := func(name string) string { return filepath.Join(cfg.Outputs.Dir, name) }
	if err := report.WriteSignalsCSV(out(cfg.Outputs.SignalsCSV), res.Signals); err != nil {
		return fmt.Errorf("write signals: %w", err)
	}
	highlights := report.BuildHighlights(res)
	if err := report.WriteHighlights(out(cfg.Outputs.HighlightsText), res); err != nil {
		return fmt.Errorf("write highlights: %w", err)
	}
	if err := report.WriteMarkdown(out(cfg.Outputs.HighlightsMD), highlights); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	if err := report.WriteJSON(out(cfg.Outputs.PayloadJSON), report.BuildPayload(res, universeSource)); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	if notify {
		report.NewNotifier().Notify(ctx, res, highlights)
	}

	fmt.Println(highlights)
	return nil
}

// buildFeed assembles the provider chain in configured order.
func buildFeed(cfg *config.Config) *feed.Chain {
	var providers []feed.Provider
	for _, name := range cfg.Data.Providers {
		switch name {
		case "polygon":
			providers = append(providers, feed.NewPolygon())
		case "finnhub":
			providers = append(providers, feed.NewFinnhub())
		case "yahoo":
			providers = append(providers, feed.NewYahoo())
		case "synthetic":
			providers = append(providers, feed.NewSynthetic())
		}
	}
	return feed.NewChain(providers...)
}

// checkRegime fetches the benchmark indexes and runs the market check.
func checkRegime(ctx context.Context, cfg *config.Config, chain *feed.Chain) regime.Verdict {
	start := time.Now().UTC().AddDate(0, 0, -cfg.Data.LookbackDays)

	fetch := func(symbol string) regime.Index {
		series, err := chain.DailyBars(ctx, symbol, start)
		if err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("benchmark fetch failed")
		}
		return regime.Index{Symbol: symbol, Series: series}
	}

	return regime.Check(fetch(cfg.Benchmarks.Primary), fetch(cfg.Benchmarks.Secondary))
}

func openStore(cfg *config.Config) (ledger.Store, error) {
	if cfg.Ledger.Backend == "sqlite" {
		return ledger.NewSQLite(cfg.Ledger.DBPath)
	}
	return ledger.NewCSV(cfg.Ledger.CSVPath), nil
}
