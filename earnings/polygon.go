package earnings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// PolygonSource reads the Polygon reference events API for the first
// upcoming earnings event.
type PolygonSource struct {
	BaseURL string // override for tests; default https://api.polygon.io
	Client  *http.Client
	now     func() time.Time
}

// NewPolygon builds a Polygon earnings source.
func NewPolygon() *PolygonSource {
	return &PolygonSource{
		BaseURL: "https://api.polygon.io",
		Client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (s *PolygonSource) Name() string { return "polygon" }

type polygonEvents struct {
	Results []struct {
		StartDate    string `json:"startDate"`
		FiscalPeriod string `json:"fiscalPeriod"`
	} `json:"results"`
}

// NextEarnings implements Source.
func (s *PolygonSource) NextEarnings(ctx context.Context, ticker string) (time.Time, bool, error) {
	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return time.Time{}, false, fmt.Errorf("POLYGON_API_KEY not set")
	}

	q := url.Values{
		"ticker": {strings.ToUpper(ticker)},
		"order":  {"asc"},
		"limit":  {"1"},
		"sort":   {"startDate"},
		"apiKey": {apiKey},
		"start":  {market.Day(s.now().UTC())},
	}
	u := s.BaseURL + "/vX/reference/events/earnings?" + q.Encode()

	var payload polygonEvents
	if err := getJSON(ctx, s.Client, u, &payload); err != nil {
		return time.Time{}, false, err
	}
	if len(payload.Results) == 0 {
		return time.Time{}, false, nil
	}

	raw := payload.Results[0].StartDate
	if raw == "" {
		raw = payload.Results[0].FiscalPeriod
	}
	d, err := market.ParseDay(raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return d, true, nil
}
