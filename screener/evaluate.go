package screener

import (
	"context"
	"fmt"
	"math"

	"github.com/Ayodukale/S-B/indicators"
	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/market"
)

// evaluation is the outcome of one ticker's pass through the state machine.
type evaluation struct {
	ticker string

	row         *SignalRow
	position    *ledger.Position // next ledger row for this ticker, nil when none
	entered     bool
	closed      bool
	suppressed  *SuppressedEntry
	filterEvent *FilterEvent

	err error // per-ticker failure; the run continues without this ticker
}

// evaluateSeries runs pre-filters, classification and the ledger transition
// for one ticker. prior is the ticker's existing ledger row, nil when none.
func (s *Screener) evaluateSeries(ctx context.Context, ticker string, series market.Series, prior *ledger.Position) evaluation {
	ev := evaluation{ticker: ticker}

	// Fetches this short are dropped outright, before the history filter
	// below can even fire.
	if series.Len() < s.cfg.MinFetchBars {
		return ev
	}

	if series.Len() < s.cfg.MinBars {
		ev.filterEvent = &FilterEvent{Ticker: ticker, Filter: FilterInsufficientHistory,
			Detail: fmt.Sprintf("<%d bars after fetch", s.cfg.MinBars)}
		return ev
	}

	ind := indicators.Compute(series)

	if indicators.Known(ind.DollarVol20) && ind.DollarVol20 < s.cfg.MinDollarVolume {
		ev.filterEvent = &FilterEvent{Ticker: ticker, Filter: FilterLowDollarVolume,
			Detail: fmt.Sprintf("20d avg $%.1fM", ind.DollarVol20/1e6)}
		return ev
	}

	latest, prev := series.Latest(), series.Prev()

	gapPct := 0.0
	if prev.Close != 0 {
		gapPct = math.Abs(latest.Open-prev.Close) / prev.Close
	}
	if gapPct > s.cfg.MaxGapPct {
		ev.filterEvent = &FilterEvent{Ticker: ticker, Filter: FilterGap,
			Detail: fmt.Sprintf("gap %.1f%%", gapPct*100)}
		return ev
	}

	closeChange := 0.0
	if prev.Close != 0 {
		closeChange = math.Abs(latest.Close-prev.Close) / prev.Close
	}
	rangePct := 0.0
	if latest.Close != 0 {
		rangePct = (latest.High - latest.Low) / latest.Close
	}
	if rangePct > s.cfg.MaxRangePct || closeChange > s.cfg.MaxRangePct {
		ev.filterEvent = &FilterEvent{Ticker: ticker, Filter: FilterDataSanity,
			Detail: fmt.Sprintf("range %.1f%% change %.1f%%", rangePct*100, closeChange*100)}
		return ev
	}

	s.classify(ctx, &ev, series, ind)
	s.transition(&ev, series, ind, prior)
	return ev
}

// classify walks the ordered rule list: earnings guard, buy zone (or market
// filter), extended-above-zone, below-EMA20, watch. The first matching rule
// wins.
func (s *Screener) classify(ctx context.Context, ev *evaluation, series market.Series, ind indicators.Set) {
	latest, prev := series.Latest(), series.Prev()
	ema9 := indicators.Latest(ind.EMA9)
	ema20 := indicators.Latest(ind.EMA20)

	setup := ema9 > ema20
	buyZoneLow := ledger.Round2(math.Min(ema9, ema20))
	buyZoneHigh := ledger.Round2(math.Max(ema9, ema20))
	inBuyZone := buyZoneLow <= latest.Close && latest.Close <= buyZoneHigh
	allowEntries := s.verdict.AllowEntries()

	action := ActionWatch
	notes := ""
	suppressed := false
	entered := false
	nextEarnings := ""

	// The earnings date is only worth resolving when an entry is even
	// conceivable; this keeps cold tickers from burning API quota.
	if setup && allowEntries {
		if date, found := s.guard.NextEarnings(ctx, ev.ticker); found {
			nextEarnings = market.Day(date)
			daysUntil := market.DaysBetween(s.today(), date)
			if daysUntil >= 0 && daysUntil <= s.cfg.EarningsWindowDays {
				action = ActionEarningsGuard
				notes = "Earnings " + nextEarnings
				suppressed = true
			}
		}
	}

	switch {
	case suppressed:
		// earnings guard already classified this row
	case setup && inBuyZone && allowEntries:
		action = ActionBuyZone
		notes = "Price inside EMA buy zone"
		entered = true
	case setup && inBuyZone:
		action = ActionMarketFilter
		notes = "Market filter active: " + s.verdict.Reason
		suppressed = true
	case setup && latest.Close > buyZoneHigh:
		action = ActionWaitForPullbck
		notes = "Price extended above buy zone"
	case latest.Close < ema20:
		action = ActionExitCandidate
		notes = "Close below EMA20"
	}

	ev.entered = entered
	if suppressed {
		reason := notes
		if reason == "" {
			reason = string(action)
		}
		ev.suppressed = &SuppressedEntry{
			Ticker:      ev.ticker,
			Strategy:    s.cfg.Strategy,
			BuyZoneLow:  buyZoneLow,
			BuyZoneHigh: buyZoneHigh,
			Close:       ledger.Round2(latest.Close),
			Reason:      reason,
		}
	}

	// Non-setup tickers are silently absent from the signal output; they
	// still flow through the ledger transition.
	if !setup {
		return
	}

	var marketOK *bool
	if !s.verdict.Skipped() {
		ok := s.verdict.OK
		marketOK = &ok
	}

	ev.row = &SignalRow{
		Date:         market.Day(latest.Date),
		Ticker:       ev.ticker,
		Strategy:     s.cfg.Strategy,
		Setup:        true,
		Action:       action,
		BuyZoneLow:   buyZoneLow,
		BuyZoneHigh:  buyZoneHigh,
		ConfirmToday: latest.Close > prev.Close,
		Close:        ledger.Round2(latest.Close),
		EMA9:         ledger.Round2(ema9),
		EMA20:        ledger.Round2(ema20),
		ATR14:        ledger.Round2(indicators.Latest(ind.ATR14)),
		Volume:       latest.Volume,
		Vol20:        ind.Vol20,
		Notes:        notes,
		MarketOK:     marketOK,
		MarketReason: s.verdict.Reason,
		NextEarnings: nextEarnings,
	}
}

// transition applies the ledger rules: refresh or close an existing OPEN
// row, open a new row on a triggered entry, and leave CLOSED rows alone (no
// re-entry; one trade per ticker lifetime in this ledger).
func (s *Screener) transition(ev *evaluation, series market.Series, ind indicators.Set, prior *ledger.Position) {
	latest := series.Latest()
	latestDate := market.Day(latest.Date)
	ema20 := indicators.Latest(ind.EMA20)

	if prior != nil && prior.Open() {
		entryPrice := prior.EntryPrice
		if entryPrice == 0 {
			entryPrice = latest.Close
		}
		entryDate := prior.EntryDate
		if entryDate == "" {
			entryDate = latestDate
		}

		entryIdx := 0
		if d, err := market.ParseDay(entryDate); err == nil {
			entryIdx = series.IndexOnOrAfter(d)
		}
		window := series.Bars[entryIdx:]

		highest := window[0].Close
		for _, b := range window {
			if b.Close > highest {
				highest = b.Close
			}
		}
		highest = ledger.Round2(highest)

		peakR := math.NaN()
		if atrAtEntry := ind.ATR14[entryIdx]; indicators.Known(atrAtEntry) && atrAtEntry != 0 {
			peakR = ledger.Round2((highest - entryPrice) / atrAtEntry)
		}

		daysHeld := 0
		if d, err := market.ParseDay(entryDate); err == nil {
			daysHeld = market.DaysBetween(d, latest.Date)
		}

		pos := ledger.Position{
			Ticker:        ev.ticker,
			Strategy:      prior.Strategy,
			Status:        ledger.StatusOpen,
			EntryDate:     entryDate,
			EntryPrice:    entryPrice,
			PctSinceEntry: ledger.Round2((latest.Close/entryPrice - 1) * 100),
			PeakR:         peakR,
			DaysHeld:      daysHeld,
			HighestClose:  highest,
			Notes:         prior.Notes,
		}

		if latest.Close < ema20 {
			pos.Status = ledger.StatusClosed
			pos.ExitDate = latestDate
			pos.ExitPrice = ledger.Round2(latest.Close)
			pos.Notes = "EMA20_break_exit"
			ev.closed = true
		}

		ev.position = &pos
		ev.entered = false // an open row can't be entered again
		return
	}

	// No existing row at all: a triggered entry opens one. A CLOSED row
	// stays closed; re-entry is deliberately not implemented.
	if prior == nil && ev.entered {
		price := ledger.Round2(latest.Close)
		ev.position = &ledger.Position{
			Ticker:        ev.ticker,
			Strategy:      s.cfg.Strategy,
			Status:        ledger.StatusOpen,
			EntryDate:     latestDate,
			EntryPrice:    price,
			PctSinceEntry: 0,
			PeakR:         0,
			DaysHeld:      0,
			HighestClose:  price,
			Notes:         "Entered on buy zone trigger",
		}
		return
	}

	ev.entered = false
}
