package feed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// Synthetic generates plausible-looking bars when every live provider is
// down. The series is tagged SourceSynthetic so the regime filter and
// reports can tell it apart from real data. Seeded from the symbol, so the
// same symbol yields the same bars on the same day.
type Synthetic struct {
	Periods int // default 180
	now     func() time.Time
}

// NewSynthetic builds the synthetic generator.
func NewSynthetic() *Synthetic {
	return &Synthetic{Periods: 180, now: time.Now}
}

func (g *Synthetic) Name() string { return "synthetic" }

// DailyBars implements Provider. It never fails.
func (g *Synthetic) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	periods := g.Periods
	if periods <= 0 {
		periods = 180
	}

	h := fnv.New32a()
	h.Write([]byte(symbol))
	offset := float64(h.Sum32()%500) * 0.05
	rng := rand.New(rand.NewSource(int64(h.Sum32())))

	s := market.Series{Symbol: symbol, Source: market.SourceSynthetic}
	dates := businessDays(g.now().UTC(), periods)

	prevClose := 0.0
	for i, d := range dates {
		t := float64(i) / float64(periods)
		base := 100 + 5*math.Sin(2*math.Pi*t) + 15*t + offset
		close := base * (1 + rng.NormFloat64()*0.01)

		open := close
		if i > 0 {
			open = prevClose * (1 + rng.NormFloat64()*0.002)
		}
		upper := math.Abs(rng.NormFloat64()*0.003 + 0.005)
		lower := math.Abs(rng.NormFloat64()*0.003 + 0.005)

		s.Bars = append(s.Bars, market.Bar{
			Date:   d,
			Open:   open,
			High:   math.Max(open, close) * (1 + upper),
			Low:    math.Min(open, close) * (1 - lower),
			Close:  close,
			Volume: float64(1_000_000 + rng.Intn(750_000)),
		})
		prevClose = close
	}
	return s, nil
}

// businessDays returns the last n weekdays ending on (or before) end.
func businessDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	y, m, d := end.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, -1)
	}
	// generated newest-first, reverse into ascending order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
