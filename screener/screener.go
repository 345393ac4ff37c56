// Package screener is the per-ticker signal/ledger state machine: it scores
// a watchlist against the dual-EMA rule, decides enter/hold/exit/suppress
// per ticker, and produces the next ledger.
package screener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayodukale/S-B/feed"
	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/pkg/id"
	"github.com/Ayodukale/S-B/regime"
)

// EarningsGuard resolves the next known earnings date for a ticker. A false
// return means no upcoming earnings are known; the guard never errors.
type EarningsGuard interface {
	NextEarnings(ctx context.Context, ticker string) (time.Time, bool)
}

// Config holds the screen thresholds.
type Config struct {
	Strategy           string
	LookbackDays       int
	MinFetchBars       int     // fetches shorter than this are dropped silently
	MinBars            int     // INSUFFICIENT_HISTORY threshold
	MinDollarVolume    float64 // LOW_DOLLAR_VOLUME threshold
	MaxGapPct          float64 // GAP_FILTER_TRIGGERED threshold
	MaxRangePct        float64 // DATA_SANITY_FLAG threshold
	EarningsWindowDays int
	Concurrency        int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Strategy:           "BASE",
		LookbackDays:       250,
		MinFetchBars:       30,
		MinBars:            25,
		MinDollarVolume:    5_000_000,
		MaxGapPct:          0.08,
		MaxRangePct:        0.20,
		EarningsWindowDays: 2,
		Concurrency:        4,
	}
}

// Screener evaluates a watchlist once per run. The regime verdict is
// computed once up front and shared read-only across tickers.
type Screener struct {
	cfg     Config
	feed    feed.Provider
	guard   EarningsGuard
	verdict regime.Verdict
	now     func() time.Time
}

// New builds a screener.
func New(cfg Config, provider feed.Provider, guard EarningsGuard, verdict regime.Verdict) *Screener {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Screener{cfg: cfg, feed: provider, guard: guard, verdict: verdict, now: time.Now}
}

func (s *Screener) today() time.Time { return s.now().UTC() }

// Run fetches and evaluates every ticker, then merges the per-ticker
// outcomes into one Result. Tickers are processed concurrently; the merge
// is serialized and deterministic in watchlist order. One ticker failing
// never aborts the batch.
func (s *Screener) Run(ctx context.Context, tickers []string, prior map[string]ledger.Position) *Result {
	res := &Result{
		RunID:       id.New(),
		GeneratedAt: s.today(),
		Regime:      s.verdict,
		Ledger:      map[string]ledger.Position{},
	}

	start := s.today().AddDate(0, 0, -s.cfg.LookbackDays)
	evals := make([]evaluation, len(tickers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.cfg.Concurrency)
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			evals[i] = s.runTicker(ctx, ticker, start, prior)
		}(i, ticker)
	}
	wg.Wait()

	// Serial merge in watchlist order so output is deterministic no matter
	// how the workers interleaved.
	for _, ev := range evals {
		s.merge(res, ev)
	}

	// Rows untouched this run (closed positions, filtered or failed
	// tickers) carry forward unchanged.
	for ticker, p := range prior {
		if _, ok := res.Ledger[ticker]; !ok {
			res.Ledger[ticker] = p
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("tickers", len(tickers)).
		Int("signals", len(res.Signals)).
		Int("entries", len(res.Entries)).
		Int("exits", len(res.Exits)).
		Int("suppressed", len(res.Suppressed)).
		Int("filtered", len(res.FilterEvents)).
		Bool("market_ok", s.verdict.OK).
		Msg("screen complete")

	return res
}

// runTicker isolates one ticker's fetch+evaluate. Panics from malformed
// data are contained here so a single bad ticker behaves like a skip.
func (s *Screener) runTicker(ctx context.Context, ticker string, start time.Time, prior map[string]ledger.Position) (ev evaluation) {
	defer func() {
		if r := recover(); r != nil {
			ev = evaluation{ticker: ticker, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	series, err := s.feed.DailyBars(ctx, ticker, start)
	if err != nil {
		return evaluation{ticker: ticker, err: err}
	}

	var priorPos *ledger.Position
	if p, ok := prior[ticker]; ok {
		priorPos = &p
	}
	return s.evaluateSeries(ctx, ticker, series, priorPos)
}

func (s *Screener) merge(res *Result, ev evaluation) {
	if ev.err != nil {
		log.Warn().Str("ticker", ev.ticker).Err(ev.err).Msg("ticker skipped")
		return
	}
	if ev.filterEvent != nil {
		log.Info().Str("ticker", ev.ticker).
			Str("filter", string(ev.filterEvent.Filter)).
			Str("detail", ev.filterEvent.Detail).
			Msg("ticker filtered")
		res.FilterEvents = append(res.FilterEvents, *ev.filterEvent)
		return
	}

	if ev.row != nil {
		res.Signals = append(res.Signals, *ev.row)
	}
	if ev.suppressed != nil {
		res.Suppressed = append(res.Suppressed, *ev.suppressed)
	}
	if ev.position != nil {
		res.Ledger[ev.ticker] = *ev.position
		switch {
		case ev.closed:
			res.Exits = append(res.Exits, *ev.position)
		case ev.entered:
			res.Entries = append(res.Entries, *ev.position)
		}
	}
}
