// Package indicators derives the technical series the screener consumes:
// exponential and simple moving averages, average true range and rolling
// volume means.
//
// All functions are pure and deterministic. Values that are undefined until
// enough history accumulates are NaN, never zero; callers must treat NaN as
// "unknown" rather than a price of zero.
package indicators

import (
	"math"

	"github.com/Ayodukale/S-B/market"
)

// Set holds the per-bar indicator columns for one series, aligned index-for-
// index with the bars they were computed from, plus the latest rolling
// volume means.
type Set struct {
	EMA9  []float64
	EMA20 []float64
	ATR14 []float64 // NaN until 14 true ranges exist

	Vol20       float64 // NaN until 20 bars
	DollarVol20 float64 // NaN until 20 bars
}

// Compute derives the full indicator set for a bar history. The input must
// have at least one bar.
func Compute(s market.Series) Set {
	closes := s.Closes()
	volumes := make([]float64, s.Len())
	dollar := make([]float64, s.Len())
	for i, b := range s.Bars {
		volumes[i] = b.Volume
		dollar[i] = b.Close * b.Volume
	}

	return Set{
		EMA9:        EMASeries(closes, 9),
		EMA20:       EMASeries(closes, 20),
		ATR14:       ATRSeries(s.Bars, 14),
		Vol20:       RollingMeanLast(volumes, 20),
		DollarVol20: RollingMeanLast(dollar, 20),
	}
}

// Latest returns the last value of a column.
func Latest(xs []float64) float64 { return xs[len(xs)-1] }

// Known reports whether an indicator value is defined.
func Known(x float64) bool { return !math.IsNaN(x) }
