package screener

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/market"
	"github.com/Ayodukale/S-B/regime"
)

var (
	testToday = time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

	marketOK      = regime.Verdict{OK: true, Reason: "market_ok: SPY & QQQ in uptrend"}
	marketBad     = regime.Verdict{OK: false, Reason: "SPY below EMA20/SMA50 or SMA50 not rising"}
	marketSkipped = regime.Verdict{OK: true, Reason: "market_check_skipped: synthetic_data"}
)

type stubGuard struct {
	date  time.Time
	found bool
	calls int
}

func (g *stubGuard) NextEarnings(ctx context.Context, ticker string) (time.Time, bool) {
	g.calls++
	return g.date, g.found
}

type stubFeed struct {
	series map[string]market.Series
	err    error
}

func (f *stubFeed) Name() string { return "stub" }

func (f *stubFeed) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	if f.err != nil {
		return market.Series{}, f.err
	}
	return f.series[symbol], nil
}

// seriesWithCloses builds a well-behaved daily series ending on testToday:
// opens track the prior close, ranges are tight, volume is heavy enough to
// clear the dollar-volume filter.
func seriesWithCloses(symbol string, closes []float64) market.Series {
	s := market.Series{Symbol: symbol, Source: market.SourceYahoo}
	start := testToday.AddDate(0, 0, -(len(closes) - 1))
	prev := closes[0]
	for i, c := range closes {
		open := prev
		s.Bars = append(s.Bars, market.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, c) + 0.5,
			Low:    math.Min(open, c) - 0.5,
			Close:  c,
			Volume: 1_000_000,
		})
		prev = c
	}
	return s
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// buyZoneCloses yields a series whose final bar sits inside the EMA buy
// zone: 30 flat bars at 100, four pushes to 104, then a pullback to 102.
// That leaves ema9 ~102.29 > ema20 ~101.38 with close 102 between them.
func buyZoneCloses() []float64 {
	return append(append(repeat(100, 30), 104, 104, 104, 104), 102)
}

// extendedCloses ends with the close above the zone: the last bar keeps
// pushing instead of pulling back.
func extendedCloses() []float64 {
	return append(repeat(100, 30), 104, 104, 104, 104, 104)
}

// breakdownCloses ends below both EMAs.
func breakdownCloses() []float64 {
	return append(repeat(100, 30), 96, 92, 90, 88, 85)
}

func newTestScreener(verdict regime.Verdict, guard EarningsGuard, series ...market.Series) *Screener {
	feedStub := &stubFeed{series: map[string]market.Series{}}
	for _, s := range series {
		feedStub.series[s.Symbol] = s
	}
	if guard == nil {
		guard = &stubGuard{}
	}
	scr := New(DefaultConfig(), feedStub, guard, verdict)
	scr.now = func() time.Time { return testToday }
	return scr
}

func TestRun_BuyZoneTriggersEntry(t *testing.T) {
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	row := res.Signals[0]
	assert.Equal(t, ActionBuyZone, row.Action)
	assert.True(t, row.Setup)
	assert.True(t, row.BuyZoneLow <= row.Close && row.Close <= row.BuyZoneHigh)
	assert.Equal(t, "Price inside EMA buy zone", row.Notes)
	require.NotNil(t, row.MarketOK)
	assert.True(t, *row.MarketOK)

	require.Len(t, res.Entries, 1)
	pos := res.Ledger["ABC"]
	assert.Equal(t, ledger.StatusOpen, pos.Status)
	assert.Equal(t, 102.00, pos.EntryPrice)
	assert.Equal(t, market.Day(testToday), pos.EntryDate)
	assert.Equal(t, 0.0, pos.PctSinceEntry)
	assert.Equal(t, 0.0, pos.PeakR)
	assert.Equal(t, 0, pos.DaysHeld)
	assert.Equal(t, "Entered on buy zone trigger", pos.Notes)
}

func TestRun_Idempotent(t *testing.T) {
	series := seriesWithCloses("ABC", buyZoneCloses())

	a := newTestScreener(marketOK, nil, series).Run(context.Background(), []string{"ABC"}, nil)
	b := newTestScreener(marketOK, nil, series).Run(context.Background(), []string{"ABC"}, nil)

	assert.Equal(t, a.Signals, b.Signals)
	assert.Equal(t, a.Ledger, b.Ledger)
	assert.Equal(t, a.Entries, b.Entries)
}

func TestRun_ExtendedAboveZoneWaitsForPullback(t *testing.T) {
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", extendedCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	assert.Equal(t, ActionWaitForPullbck, res.Signals[0].Action)
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Ledger)
}

func TestRun_EarningsGuardBeatsBuyZone(t *testing.T) {
	// In the buy zone AND reporting within two days: the guard wins, the
	// entry is suppressed.
	guard := &stubGuard{date: testToday.AddDate(0, 0, 1), found: true}
	scr := newTestScreener(marketOK, guard, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	row := res.Signals[0]
	assert.Equal(t, ActionEarningsGuard, row.Action)
	assert.Equal(t, "Earnings 2025-06-07", row.Notes)
	assert.Equal(t, "2025-06-07", row.NextEarnings)

	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Ledger)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, "Earnings 2025-06-07", res.Suppressed[0].Reason)
}

func TestRun_EarningsOutsideWindowDoesNotSuppress(t *testing.T) {
	guard := &stubGuard{date: testToday.AddDate(0, 0, 5), found: true}
	scr := newTestScreener(marketOK, guard, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	assert.Equal(t, ActionBuyZone, res.Signals[0].Action)
	assert.Equal(t, "2025-06-11", res.Signals[0].NextEarnings)
	assert.Len(t, res.Entries, 1)
}

func TestRun_MarketFilterSuppressesEntry(t *testing.T) {
	guard := &stubGuard{date: testToday, found: true}
	scr := newTestScreener(marketBad, guard, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	row := res.Signals[0]
	assert.Equal(t, ActionMarketFilter, row.Action)
	assert.Equal(t, "Market filter active: "+marketBad.Reason, row.Notes)
	require.NotNil(t, row.MarketOK)
	assert.False(t, *row.MarketOK)

	assert.Empty(t, res.Entries)
	require.Len(t, res.Suppressed, 1)
	// entries blocked, so the earnings API is never consulted
	assert.Zero(t, guard.calls)
}

func TestRun_SkippedMarketCheckAllowsEntries(t *testing.T) {
	scr := newTestScreener(marketSkipped, nil, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	assert.Equal(t, ActionBuyZone, res.Signals[0].Action)
	assert.Nil(t, res.Signals[0].MarketOK, "market_ok is null when the check was skipped")
	assert.Len(t, res.Entries, 1)
}

func TestRun_OpenPositionExitsOnEMA20Break(t *testing.T) {
	prior := map[string]ledger.Position{
		"ABC": {
			Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusOpen,
			EntryDate:  market.Day(testToday.AddDate(0, 0, -10)),
			EntryPrice: 100,
			Notes:      "Entered on buy zone trigger",
		},
	}
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", breakdownCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, prior)

	require.Len(t, res.Exits, 1)
	pos := res.Ledger["ABC"]
	assert.Equal(t, ledger.StatusClosed, pos.Status)
	assert.Equal(t, 85.00, pos.ExitPrice)
	assert.Equal(t, market.Day(testToday), pos.ExitDate)
	assert.Equal(t, "EMA20_break_exit", pos.Notes)
	assert.Equal(t, -15.0, pos.PctSinceEntry)
	assert.Equal(t, 10, pos.DaysHeld)
}

func TestRun_OpenPositionRefreshedWhileAboveEMA20(t *testing.T) {
	prior := map[string]ledger.Position{
		"ABC": {
			Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusOpen,
			EntryDate:  market.Day(testToday.AddDate(0, 0, -4)),
			EntryPrice: 100,
			Notes:      "Entered on buy zone trigger",
		},
	}
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, prior)

	pos := res.Ledger["ABC"]
	assert.Equal(t, ledger.StatusOpen, pos.Status)
	assert.Equal(t, 100.0, pos.EntryPrice, "entry price never changes while open")
	assert.Equal(t, 2.0, pos.PctSinceEntry)
	assert.Equal(t, 104.0, pos.HighestClose)
	assert.Equal(t, 4, pos.DaysHeld)
	assert.Equal(t, "Entered on buy zone trigger", pos.Notes)
	assert.Empty(t, res.Exits)
	assert.Empty(t, res.Entries)
}

// seriesWideRange is seriesWithCloses with a full point of intrabar range,
// so flat stretches carry a true range of exactly 2.0 per bar.
func seriesWideRange(symbol string, closes []float64) market.Series {
	s := seriesWithCloses(symbol, closes)
	for i := range s.Bars {
		b := &s.Bars[i]
		b.High = math.Max(b.Open, b.Close) + 1
		b.Low = math.Min(b.Open, b.Close) - 1
	}
	return s
}

func TestRun_OpenPositionPeakRTracksATRMultiple(t *testing.T) {
	// 30 flat bars at 100 with TR 2.0 each, then 104, 108, 110. Entry sits
	// on the last flat bar, so ATR14 at entry is exactly 2.0; the window max
	// close is 110, giving peak R = (110 - 100) / 2 = 5.
	series := seriesWideRange("ABC", append(repeat(100, 30), 104, 108, 110))
	prior := map[string]ledger.Position{
		"ABC": {
			Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusOpen,
			EntryDate:  market.Day(testToday.AddDate(0, 0, -3)),
			EntryPrice: 100,
			Notes:      "Entered on buy zone trigger",
		},
	}
	scr := newTestScreener(marketOK, nil, series)

	res := scr.Run(context.Background(), []string{"ABC"}, prior)

	pos := res.Ledger["ABC"]
	assert.Equal(t, ledger.StatusOpen, pos.Status)
	assert.Equal(t, 110.0, pos.HighestClose)
	assert.Equal(t, 5.0, pos.PeakR)
	assert.Equal(t, 10.0, pos.PctSinceEntry)
	assert.Equal(t, 3, pos.DaysHeld)
	assert.Empty(t, res.Exits)
}

func TestRun_BuyZoneBoundaryIsInclusive(t *testing.T) {
	// The final close lands exactly on the rounded zone low: after four
	// pushes to 104, ema20 updates to ~101.3197, which rounds to 101.32.
	// A close of 101.32 equals the boundary and must still trigger.
	closes := append(append(repeat(100, 30), 104, 104, 104, 104), 101.32)
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", closes))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	require.Len(t, res.Signals, 1)
	row := res.Signals[0]
	assert.Equal(t, ActionBuyZone, row.Action)
	assert.Equal(t, 101.32, row.BuyZoneLow)
	assert.Equal(t, row.BuyZoneLow, row.Close)
	assert.True(t, row.BuyZoneLow < row.BuyZoneHigh)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, 101.32, res.Ledger["ABC"].EntryPrice)
}

func TestRun_ClosedPositionNeverReenters(t *testing.T) {
	prior := map[string]ledger.Position{
		"ABC": {
			Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusClosed,
			EntryDate: "2025-05-01", EntryPrice: 95,
			ExitDate: "2025-05-20", ExitPrice: 90,
			Notes: "EMA20_break_exit",
		},
	}
	// the ticker is back in the buy zone, which would trigger a fresh entry
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", buyZoneCloses()))

	res := scr.Run(context.Background(), []string{"ABC"}, prior)

	require.Len(t, res.Signals, 1)
	assert.Equal(t, ActionBuyZone, res.Signals[0].Action)
	assert.Empty(t, res.Entries, "closed tickers are one-and-done")

	pos := res.Ledger["ABC"]
	assert.Equal(t, ledger.StatusClosed, pos.Status)
	assert.Equal(t, 90.0, pos.ExitPrice)
}

func TestRun_FilteredTickerKeepsPriorPositionUntouched(t *testing.T) {
	// A gapped-up series trips the gap filter; the open row it carries must
	// survive the run unchanged.
	series := seriesWithCloses("ABC", extendedCloses())
	last := len(series.Bars) - 1
	series.Bars[last].Open = series.Bars[last-1].Close * 1.2
	series.Bars[last].High = series.Bars[last].Open + 1

	prior := map[string]ledger.Position{
		"ABC": {Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusOpen, EntryDate: "2025-06-02", EntryPrice: 100},
	}
	scr := newTestScreener(marketOK, nil, series)

	res := scr.Run(context.Background(), []string{"ABC"}, prior)

	require.Len(t, res.FilterEvents, 1)
	assert.Equal(t, FilterGap, res.FilterEvents[0].Filter)
	assert.Empty(t, res.Signals)
	assert.Equal(t, prior["ABC"], res.Ledger["ABC"])
}

func TestRun_FeedFailureSkipsTickerNotRun(t *testing.T) {
	feedStub := &stubFeed{err: errors.New("all providers down")}
	scr := New(DefaultConfig(), feedStub, &stubGuard{}, marketOK)
	scr.now = func() time.Time { return testToday }

	res := scr.Run(context.Background(), []string{"ABC", "XYZ"}, nil)

	assert.Empty(t, res.Signals)
	assert.Empty(t, res.Ledger)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_ShortFetchDroppedSilently(t *testing.T) {
	scr := newTestScreener(marketOK, nil, seriesWithCloses("ABC", repeat(100, 28)))

	res := scr.Run(context.Background(), []string{"ABC"}, nil)

	// under 30 bars: no filter event, no signal, nothing at all
	assert.Empty(t, res.FilterEvents)
	assert.Empty(t, res.Signals)
}

func TestEvaluate_InsufficientHistoryEvent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFetchBars = 10 // expose the history filter
	scr := New(cfg, &stubFeed{}, &stubGuard{}, marketOK)
	scr.now = func() time.Time { return testToday }

	ev := scr.evaluateSeries(context.Background(), "ABC", seriesWithCloses("ABC", repeat(100, 20)), nil)

	require.NotNil(t, ev.filterEvent)
	assert.Equal(t, FilterInsufficientHistory, ev.filterEvent.Filter)
	assert.Equal(t, "<25 bars after fetch", ev.filterEvent.Detail)
	assert.Nil(t, ev.row)
	assert.Nil(t, ev.position)
}

func TestEvaluate_LowDollarVolumeEvent(t *testing.T) {
	series := seriesWithCloses("ABC", buyZoneCloses())
	for i := range series.Bars {
		series.Bars[i].Volume = 10_000 // ~$1M a day traded
	}
	scr := newTestScreener(marketOK, nil)

	ev := scr.evaluateSeries(context.Background(), "ABC", series, nil)

	require.NotNil(t, ev.filterEvent)
	assert.Equal(t, FilterLowDollarVolume, ev.filterEvent.Filter)
	assert.Contains(t, ev.filterEvent.Detail, "20d avg $")
}

func TestEvaluate_DataSanityFlag(t *testing.T) {
	series := seriesWithCloses("ABC", buyZoneCloses())
	last := len(series.Bars) - 1
	series.Bars[last].High = series.Bars[last].Close * 1.3
	series.Bars[last].Low = series.Bars[last].Close * 0.9
	scr := newTestScreener(marketOK, nil)

	ev := scr.evaluateSeries(context.Background(), "ABC", series, nil)

	require.NotNil(t, ev.filterEvent)
	assert.Equal(t, FilterDataSanity, ev.filterEvent.Filter)
}

func TestEvaluate_NonSetupEmitsNoRowButUpdatesLedger(t *testing.T) {
	prior := ledger.Position{
		Ticker: "ABC", Strategy: "BASE", Status: ledger.StatusOpen,
		EntryDate: market.Day(testToday.AddDate(0, 0, -10)), EntryPrice: 100,
	}
	scr := newTestScreener(marketOK, nil)

	// hard breakdown: ema9 < ema20, no signal row, but the open position
	// still transitions to CLOSED
	ev := scr.evaluateSeries(context.Background(), "ABC", seriesWithCloses("ABC", breakdownCloses()), &prior)

	assert.Nil(t, ev.row)
	require.NotNil(t, ev.position)
	assert.True(t, ev.closed)
	assert.Equal(t, ledger.StatusClosed, ev.position.Status)
}
