package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// Yahoo fetches daily bars from the public Yahoo Finance chart API. It
// needs no API key, which makes it the live fallback of last resort before
// the synthetic generator.
type Yahoo struct {
	BaseURL string // override for tests; default https://query1.finance.yahoo.com
	Client  *http.Client
	now     func() time.Time
}

// NewYahoo builds a Yahoo bar provider.
func NewYahoo() *Yahoo {
	return &Yahoo{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars implements Provider.
func (y *Yahoo) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	days := market.DaysBetween(start, y.now().UTC())
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.BaseURL, url.PathEscape(symbol), yahooRange(days))

	var chart yahooChart
	if err := fetchJSON(ctx, y.Client, u, &chart); err != nil {
		return market.Series{}, err
	}
	if chart.Chart.Error != nil {
		return market.Series{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return market.Series{}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	s := market.Series{Symbol: symbol, Source: market.SourceYahoo}
	for i, ts := range result.Timestamp {
		b := market.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  deref(quote.Close, i),
			Volume: deref(quote.Volume, i),
		}
		// null bars show up on holidays
		if b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue
		}
		s.Bars = append(s.Bars, b)
	}

	if !start.IsZero() && len(s.Bars) > 0 {
		trimmed := s.Bars[:0]
		for _, b := range s.Bars {
			if !b.Date.Before(start) {
				trimmed = append(trimmed, b)
			}
		}
		s.Bars = trimmed
	}
	return s, nil
}

func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}

func deref(xs []*float64, i int) float64 {
	if i < len(xs) && xs[i] != nil {
		return *xs[i]
	}
	return 0
}
