package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayodukale/S-B/market"
)

type stubProvider struct {
	name   string
	series market.Series
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	p.calls++
	return p.series, p.err
}

func bars(n int) []market.Bar {
	out := make([]market.Bar, n)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = market.Bar{Date: start.AddDate(0, 0, i), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1e6}
	}
	return out
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	broken := &stubProvider{name: "broken", err: errors.New("down")}
	empty := &stubProvider{name: "empty"}
	good := &stubProvider{name: "good", series: market.Series{Symbol: "ABC", Source: market.SourceYahoo, Bars: bars(3)}}
	never := &stubProvider{name: "never", series: market.Series{Symbol: "ABC", Bars: bars(1)}}

	chain := NewChain(broken, empty, good, never)
	s, err := chain.DailyBars(context.Background(), "ABC", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, market.SourceYahoo, s.Source)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, empty.calls)
	assert.Zero(t, never.calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(&stubProvider{name: "broken", err: errors.New("down")})
	_, err := chain.DailyBars(context.Background(), "ABC", time.Time{})
	assert.Error(t, err)
}

func TestChain_SyntheticTerminalFallbackAlwaysYields(t *testing.T) {
	chain := NewChain(&stubProvider{name: "broken", err: errors.New("down")}, NewSynthetic())
	s, err := chain.DailyBars(context.Background(), "ABC", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, market.SourceSynthetic, s.Source)
	assert.Equal(t, 180, s.Len())
	require.NoError(t, s.Validate())
}

func TestSynthetic_DeterministicPerSymbol(t *testing.T) {
	g := NewSynthetic()
	g.now = func() time.Time { return time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC) }

	a1, _ := g.DailyBars(context.Background(), "ABC", time.Time{})
	a2, _ := g.DailyBars(context.Background(), "ABC", time.Time{})
	b, _ := g.DailyBars(context.Background(), "XYZ", time.Time{})

	assert.Equal(t, a1.Bars, a2.Bars)
	assert.NotEqual(t, a1.Bars[len(a1.Bars)-1].Close, b.Bars[len(b.Bars)-1].Close)

	// weekends never appear
	for _, bar := range a1.Bars {
		wd := bar.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestPolygon_ParsesAggs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v2/aggs/ticker/ABC/range/1/day/")
		fmt.Fprint(w, `{"status":"OK","results":[
			{"t":1735689600000,"o":10,"h":11,"l":9,"c":10.5,"v":2000000},
			{"t":1735776000000,"o":10.5,"h":12,"l":10,"c":11.5,"v":2500000}
		]}`)
	}))
	defer srv.Close()

	t.Setenv("POLYGON_API_KEY", "test-key")
	p := NewPolygon()
	p.BaseURL = srv.URL
	p.now = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }

	s, err := p.DailyBars(context.Background(), "ABC", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, market.SourcePolygon, s.Source)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 10.5, s.Bars[0].Close)
	assert.Equal(t, "2025-01-01", market.Day(s.Bars[0].Date))
}

func TestPolygon_RetriesOnceOnRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"status":"ERROR","error":"request limit exceeded"}`)
			return
		}
		fmt.Fprint(w, `{"status":"OK","results":[{"t":1735689600000,"o":10,"h":11,"l":9,"c":10.5,"v":2000000}]}`)
	}))
	defer srv.Close()

	t.Setenv("POLYGON_API_KEY", "test-key")
	p := NewPolygon()
	p.BaseURL = srv.URL
	p.now = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	p.sleep = func(time.Duration) {}

	s, err := p.DailyBars(context.Background(), "ABC", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, s.Len())
}

func TestFinnhub_FallsBackToUSPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "ABC" {
			fmt.Fprint(w, `{"s":"no_data"}`)
			return
		}
		assert.Equal(t, "US:ABC", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"s":"ok","t":[1735689600],"o":[10],"h":[11],"l":[9],"c":[10.5],"v":[2000000]}`)
	}))
	defer srv.Close()

	t.Setenv("FINNHUB_API_KEY", "test-key")
	f := NewFinnhub()
	f.BaseURL = srv.URL
	f.now = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }

	s, err := f.DailyBars(context.Background(), "abc", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, market.SourceFinnhub, s.Source)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 10.5, s.Bars[0].Close)
}

func TestYahoo_SkipsNullHolidayBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/ABC")
		fmt.Fprint(w, `{"chart":{"result":[{
			"timestamp":[1735689600,1735776000],
			"indicators":{"quote":[{
				"open":[10,null],"high":[11,null],"low":[9,null],"close":[10.5,null],"volume":[2000000,null]
			}]}
		}]}}`)
	}))
	defer srv.Close()

	y := NewYahoo()
	y.BaseURL = srv.URL
	y.now = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }

	s, err := y.DailyBars(context.Background(), "ABC", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, market.SourceYahoo, s.Source)
	assert.Equal(t, 1, s.Len())
}
