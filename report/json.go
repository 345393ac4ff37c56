package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/screener"
)

// Payload is the machine-readable run artifact consumed by downstream
// automation.
type Payload struct {
	GeneratedAtUTC string         `json:"generated_at_utc"`
	RunID          string         `json:"run_id"`
	UniverseSource string         `json:"universe_source"`
	Signals        []SignalJSON   `json:"signals"`
	Positions      []PositionJSON `json:"positions"`
	Market         MarketJSON     `json:"market"`
}

// MarketJSON is the regime verdict as serialized.
type MarketJSON struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// SignalJSON mirrors SignalRow with explicit nulls for unknown values.
type SignalJSON struct {
	Date         string   `json:"date"`
	Ticker       string   `json:"ticker"`
	Strategy     string   `json:"strategy"`
	Setup        bool     `json:"setup"`
	Action       string   `json:"action"`
	BuyZoneLow   *float64 `json:"buy_zone_low"`
	BuyZoneHigh  *float64 `json:"buy_zone_high"`
	ConfirmToday bool     `json:"confirm_today"`
	Close        *float64 `json:"close"`
	EMA9         *float64 `json:"ema9"`
	EMA20        *float64 `json:"ema20"`
	ATR14        *float64 `json:"atr14"`
	Vol          *int64   `json:"vol"`
	Vol20        *int64   `json:"vol20"`
	Notes        string   `json:"notes"`
	MarketOK     *bool    `json:"market_ok"`
	MarketReason string   `json:"market_reason"`
	NextEarnings *string  `json:"next_earnings"`
}

// PositionJSON mirrors a ledger row with explicit nulls.
type PositionJSON struct {
	Ticker        string   `json:"ticker"`
	Strategy      string   `json:"strategy"`
	Status        string   `json:"status"`
	EntryDate     *string  `json:"entry_date"`
	EntryPrice    *float64 `json:"entry_price"`
	ExitDate      *string  `json:"exit_date"`
	ExitPrice     *float64 `json:"exit_price"`
	PctSinceEntry *float64 `json:"pct_since_entry"`
	RPeak         *float64 `json:"r_peak"`
	DaysHeld      int      `json:"days_held"`
	HighestClose  *float64 `json:"highest_close"`
	Notes         string   `json:"notes"`
}

// BuildPayload assembles the JSON artifact from a run result.
func BuildPayload(res *screener.Result, universeSource string) Payload {
	p := Payload{
		GeneratedAtUTC: res.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:          res.RunID,
		UniverseSource: universeSource,
		Signals:        []SignalJSON{},
		Positions:      []PositionJSON{},
		Market:         MarketJSON{OK: res.Regime.OK, Reason: res.Regime.Reason},
	}

	for _, r := range res.Signals {
		p.Signals = append(p.Signals, SignalJSON{
			Date:         r.Date,
			Ticker:       r.Ticker,
			Strategy:     r.Strategy,
			Setup:        r.Setup,
			Action:       string(r.Action),
			BuyZoneLow:   fptr(r.BuyZoneLow),
			BuyZoneHigh:  fptr(r.BuyZoneHigh),
			ConfirmToday: r.ConfirmToday,
			Close:        fptr(r.Close),
			EMA9:         fptr(r.EMA9),
			EMA20:        fptr(r.EMA20),
			ATR14:        fptr(r.ATR14),
			Vol:          iptr(r.Volume),
			Vol20:        iptr(r.Vol20),
			Notes:        r.Notes,
			MarketOK:     r.MarketOK,
			MarketReason: r.MarketReason,
			NextEarnings: sptr(r.NextEarnings),
		})
	}

	for _, pos := range res.LedgerRows() {
		row := PositionJSON{
			Ticker:        pos.Ticker,
			Strategy:      pos.Strategy,
			Status:        string(pos.Status),
			EntryDate:     sptr(pos.EntryDate),
			EntryPrice:    fptr(pos.EntryPrice),
			PctSinceEntry: fptr(pos.PctSinceEntry),
			RPeak:         fptr(pos.PeakR),
			DaysHeld:      pos.DaysHeld,
			HighestClose:  fptr(pos.HighestClose),
			Notes:         pos.Notes,
		}
		if pos.Status == ledger.StatusClosed {
			row.ExitDate = sptr(pos.ExitDate)
			row.ExitPrice = fptr(pos.ExitPrice)
		}
		p.Positions = append(p.Positions, row)
	}
	return p
}

// WriteJSON writes the payload to a file.
func WriteJSON(path string, p Payload) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fptr(x float64) *float64 {
	if math.IsNaN(x) {
		return nil
	}
	return &x
}

func iptr(x float64) *int64 {
	if math.IsNaN(x) {
		return nil
	}
	v := int64(math.Round(x))
	return &v
}

func sptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
