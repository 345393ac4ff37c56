package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// FinnhubSource reads the Finnhub earnings calendar for the next week and
// returns the earliest date on or after today.
type FinnhubSource struct {
	BaseURL string // override for tests; default https://finnhub.io
	Client  *http.Client
	now     func() time.Time
}

// NewFinnhub builds a Finnhub earnings source.
func NewFinnhub() *FinnhubSource {
	return &FinnhubSource{
		BaseURL: "https://finnhub.io",
		Client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (s *FinnhubSource) Name() string { return "finnhub" }

type finnhubCalendar struct {
	EarningsCalendar []struct {
		Date string `json:"date"`
	} `json:"earningsCalendar"`
}

// NextEarnings implements Source.
func (s *FinnhubSource) NextEarnings(ctx context.Context, ticker string) (time.Time, bool, error) {
	apiKey := os.Getenv("FINNHUB_API_KEY")
	if apiKey == "" {
		return time.Time{}, false, fmt.Errorf("FINNHUB_API_KEY not set")
	}

	today := s.now().UTC()
	q := url.Values{
		"symbol": {strings.ToUpper(ticker)},
		"from":   {market.Day(today)},
		"to":     {market.Day(today.AddDate(0, 0, 7))},
		"token":  {apiKey},
	}
	u := s.BaseURL + "/api/v1/calendar/earnings?" + q.Encode()

	var payload finnhubCalendar
	if err := getJSON(ctx, s.Client, u, &payload); err != nil {
		return time.Time{}, false, err
	}

	var best time.Time
	for _, item := range payload.EarningsCalendar {
		d, err := market.ParseDay(item.Date)
		if err != nil || d.Before(truncate(today)) {
			continue
		}
		if best.IsZero() || d.Before(best) {
			best = d
		}
	}
	if best.IsZero() {
		return time.Time{}, false, nil
	}
	return best, true, nil
}

func truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func getJSON(ctx context.Context, client *http.Client, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
