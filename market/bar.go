// Package market defines the daily bar model shared by the feed, the
// indicator calculator and the screener.
package market

import (
	"fmt"
	"sort"
	"time"
)

// Source tags where a bar series came from. The regime filter treats
// synthetic data as "unknown market" and fails open, so provenance has to
// survive all the way from the fetch layer.
type Source string

const (
	SourcePolygon   Source = "polygon"
	SourceFinnhub   Source = "finnhub"
	SourceYahoo     Source = "yahoo"
	SourceSynthetic Source = "synthetic"
)

// Bar is one daily OHLCV bar. Date is UTC, date-only granularity; all
// "days held" and "days until" arithmetic works on dates, never clock time.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered daily bar history for one symbol. Once fetched for a
// run it is treated as immutable.
type Series struct {
	Symbol string
	Source Source
	Bars   []Bar
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Latest returns the most recent bar. Callers must check Empty first.
func (s Series) Latest() Bar { return s.Bars[len(s.Bars)-1] }

// Prev returns the bar before the latest one.
func (s Series) Prev() Bar { return s.Bars[len(s.Bars)-2] }

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Sort orders bars by ascending date and drops duplicate dates, keeping the
// last bar seen for a date. Providers occasionally return partial overlaps
// when a request is retried.
func (s *Series) Sort() {
	sort.SliceStable(s.Bars, func(i, j int) bool {
		return s.Bars[i].Date.Before(s.Bars[j].Date)
	})
	out := s.Bars[:0]
	for _, b := range s.Bars {
		if len(out) > 0 && sameDay(out[len(out)-1].Date, b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	s.Bars = out
}

// Validate checks the series invariant: strictly increasing dates, no
// duplicates.
func (s Series) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Date, s.Bars[i].Date
		if !prev.Before(cur) {
			return fmt.Errorf("series %s: bars out of order at index %d (%s >= %s)",
				s.Symbol, i, Day(prev), Day(cur))
		}
	}
	return nil
}

// IndexOnOrAfter returns the index of the bar whose date matches d exactly,
// or the first bar on or after d, clamped to the last bar. Used to resolve a
// position's entry date back to a bar index.
func (s Series) IndexOnOrAfter(d time.Time) int {
	idx := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(truncateDay(d))
	})
	if idx >= len(s.Bars) {
		idx = len(s.Bars) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Day formats a time as a date-only ISO string.
func Day(t time.Time) string { return t.UTC().Format("2006-01-02") }

// ParseDay parses a date-only ISO string. Strings with a time component are
// truncated to the date first, matching how the ledger stores dates.
func ParseDay(s string) (time.Time, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool { return truncateDay(a).Equal(truncateDay(b)) }
