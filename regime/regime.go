// Package regime implements the broad-market health gate. Two benchmark
// indices are checked for trend health; when either cannot be checked the
// filter fails open so an unknown market never blocks entries on its own.
package regime

import (
	"fmt"
	"strings"

	"github.com/Ayodukale/S-B/indicators"
	"github.com/Ayodukale/S-B/market"
)

const skippedPrefix = "market_check_skipped"

// minBars is the least history needed for a meaningful SMA50 slope check.
const minBars = 60

// Index pairs a benchmark symbol with its fetched history.
type Index struct {
	Symbol string
	Series market.Series
}

// Verdict is the per-run market filter result. It is computed once up front
// and passed read-only into every ticker's evaluation.
type Verdict struct {
	OK     bool
	Reason string
}

// Skipped reports whether the filter never actually ran (missing, short or
// synthetic benchmark data). Downstream distinguishes "checked and passed"
// from "could not check".
func (v Verdict) Skipped() bool { return strings.HasPrefix(v.Reason, skippedPrefix) }

// AllowEntries reports whether new entries are permitted: either the market
// is healthy or the check was skipped.
func (v Verdict) AllowEntries() bool { return v.OK || v.Skipped() }

// Check evaluates trend health for both benchmarks. A single index is
// healthy iff close > EMA20, close > SMA50 and SMA50 is higher than six
// bars ago. Both must be healthy for the market to be OK.
func Check(a, b Index) Verdict {
	if a.Series.Empty() || b.Series.Empty() {
		return skipped("insufficient_data")
	}
	if a.Series.Source == market.SourceSynthetic || b.Series.Source == market.SourceSynthetic {
		return skipped("synthetic_data")
	}
	if a.Series.Len() < minBars || b.Series.Len() < minBars {
		return skipped("insufficient_data")
	}

	aOK := healthy(a.Series)
	bOK := healthy(b.Series)
	if aOK && bOK {
		return Verdict{OK: true, Reason: fmt.Sprintf("market_ok: %s & %s in uptrend", a.Symbol, b.Symbol)}
	}

	var reasons []string
	if !aOK {
		reasons = append(reasons, fmt.Sprintf("%s below EMA20/SMA50 or SMA50 not rising", a.Symbol))
	}
	if !bOK {
		reasons = append(reasons, fmt.Sprintf("%s below EMA20/SMA50 or SMA50 not rising", b.Symbol))
	}
	return Verdict{OK: false, Reason: strings.Join(reasons, " ; ")}
}

func healthy(s market.Series) bool {
	closes := s.Closes()
	ema20 := indicators.EMASeries(closes, 20)
	sma50 := indicators.SMASeries(closes, 50)

	last := len(closes) - 1
	prev := last - 5 // SMA50 six bars ago

	return closes[last] > ema20[last] &&
		indicators.Known(sma50[last]) && closes[last] > sma50[last] &&
		indicators.Known(sma50[prev]) && sma50[last] > sma50[prev]
}

func skipped(cause string) Verdict {
	return Verdict{OK: true, Reason: skippedPrefix + ": " + cause}
}
