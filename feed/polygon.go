package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Ayodukale/S-B/market"
)

// Polygon fetches adjusted daily aggregates from the Polygon v2 aggs API.
// Rate-limited or empty responses are retried once before giving up so the
// chain can fall through to the next provider.
type Polygon struct {
	BaseURL string // override for tests; default https://api.polygon.io
	Client  *http.Client
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewPolygon builds a Polygon bar provider.
func NewPolygon() *Polygon {
	return &Polygon{
		BaseURL: "https://api.polygon.io",
		Client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

func (p *Polygon) Name() string { return "polygon" }

type polygonAggs struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Results []struct {
		T int64   `json:"t"` // epoch millis
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// DailyBars implements Provider.
func (p *Polygon) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return market.Series{}, fmt.Errorf("POLYGON_API_KEY not set")
	}

	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?%s",
		p.BaseURL,
		url.PathEscape(strings.ToUpper(symbol)),
		market.Day(start), market.Day(p.now().UTC()),
		url.Values{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"5000"},
			"apiKey":   {apiKey},
		}.Encode())

	for attempt := 0; attempt < 2; attempt++ {
		var payload polygonAggs
		if err := fetchJSON(ctx, p.Client, u, &payload); err != nil {
			return market.Series{}, err
		}

		if payload.Status == "ERROR" {
			if strings.Contains(strings.ToLower(payload.Error), "exceeded") && attempt == 0 {
				p.sleep(2 * time.Second)
				continue
			}
			return market.Series{}, fmt.Errorf("polygon error: %s", payload.Error)
		}
		if len(payload.Results) == 0 {
			if attempt == 0 {
				p.sleep(time.Second)
				continue
			}
			return market.Series{}, nil
		}

		s := market.Series{Symbol: symbol, Source: market.SourcePolygon}
		for _, item := range payload.Results {
			s.Bars = append(s.Bars, market.Bar{
				Date:   time.UnixMilli(item.T).UTC(),
				Open:   item.O,
				High:   item.H,
				Low:    item.L,
				Close:  item.C,
				Volume: item.V,
			})
		}
		return s, nil
	}
	return market.Series{}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, firstN(body, 200))
	}
	return json.Unmarshal(body, out)
}

func firstN(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
