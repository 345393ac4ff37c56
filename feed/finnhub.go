package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// Finnhub fetches daily candles from the Finnhub stock/candle API. US
// listings are retried with a "US:" prefix when the bare symbol returns
// nothing.
type Finnhub struct {
	BaseURL string // override for tests; default https://finnhub.io
	Client  *http.Client
	now     func() time.Time
}

// NewFinnhub builds a Finnhub bar provider.
func NewFinnhub() *Finnhub {
	return &Finnhub{
		BaseURL: "https://finnhub.io",
		Client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

type finnhubCandles struct {
	S string    `json:"s"`
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

// DailyBars implements Provider.
func (f *Finnhub) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	apiKey := os.Getenv("FINNHUB_API_KEY")
	if apiKey == "" {
		return market.Series{}, fmt.Errorf("FINNHUB_API_KEY not set")
	}

	upper := strings.ToUpper(symbol)
	for _, sym := range []string{upper, "US:" + upper} {
		q := url.Values{
			"symbol":     {sym},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(start.UTC().Unix(), 10)},
			"to":         {strconv.FormatInt(f.now().UTC().Unix(), 10)},
			"token":      {apiKey},
		}
		u := f.BaseURL + "/api/v1/stock/candle?" + q.Encode()

		var payload finnhubCandles
		if err := fetchJSON(ctx, f.Client, u, &payload); err != nil {
			return market.Series{}, err
		}
		if payload.S != "ok" || len(payload.T) == 0 {
			continue
		}

		s := market.Series{Symbol: symbol, Source: market.SourceFinnhub}
		for i, ts := range payload.T {
			s.Bars = append(s.Bars, market.Bar{
				Date:   time.Unix(ts, 0).UTC(),
				Open:   at(payload.O, i),
				High:   at(payload.H, i),
				Low:    at(payload.L, i),
				Close:  at(payload.C, i),
				Volume: at(payload.V, i),
			})
		}
		return s, nil
	}
	return market.Series{}, nil
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}
