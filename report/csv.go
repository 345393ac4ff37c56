// Package report renders a run's Result into the artifacts downstream
// consumers read: the signals CSV, the highlights text, the JSON payload,
// a Markdown wrapper and a Discord webhook notification.
package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Ayodukale/S-B/screener"
)

var signalsHeader = []string{
	"date", "ticker", "strategy", "setup", "action",
	"buy_zone_low", "buy_zone_high", "confirm_today",
	"close", "ema9", "ema20", "atr14", "vol", "vol20",
	"notes", "market_ok", "market_reason", "next_earnings",
}

// WriteSignalsCSV writes the per-run signal snapshot. The file is fully
// regenerated every run.
func WriteSignalsCSV(path string, rows []screener.SignalRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(signalsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date,
			r.Ticker,
			r.Strategy,
			strconv.FormatBool(r.Setup),
			string(r.Action),
			num(r.BuyZoneLow),
			num(r.BuyZoneHigh),
			strconv.FormatBool(r.ConfirmToday),
			num(r.Close),
			num(r.EMA9),
			num(r.EMA20),
			num(r.ATR14),
			intStr(r.Volume),
			intStr(r.Vol20),
			r.Notes,
			boolStr(r.MarketOK),
			r.MarketReason,
			r.NextEarnings,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func num(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func intStr(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(x)), 10)
}

func boolStr(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
