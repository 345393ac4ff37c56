package indicators

import (
	"math"

	"github.com/Ayodukale/S-B/market"
)

// ATRSeries computes a per-bar average true range as a rolling mean of the
// true range over the given period:
//
//	TR = max(high-low, |high-prevClose|, |low-prevClose|)
//
// The first bar has no previous close so its TR is undefined, which makes
// ATR NaN until `period` true ranges have accumulated (period+1 bars).
func ATRSeries(bars []market.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(bars) < 2 {
		return out
	}

	trs := make([]float64, len(bars)) // trs[0] unused
	for i := 1; i < len(bars); i++ {
		trs[i] = trueRange(bars[i], bars[i-1])
	}

	sum := 0.0
	for i := 1; i < len(bars); i++ {
		sum += trs[i]
		if i > period {
			sum -= trs[i-period]
		}
		if i >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

func trueRange(cur, prev market.Bar) float64 {
	highLow := cur.High - cur.Low
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
