package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ayodukale/S-B/screener"
)

const maxOpenPositionsShown = 5

// BuildHighlights renders the human-readable run summary.
func BuildHighlights(res *screener.Result) string {
	lines := []string{"=== HIGHLIGHTS (Today) ==="}

	switch {
	case res.Regime.Skipped():
		lines = append(lines, "Market Check: ℹ️ "+res.Regime.Reason)
	case res.Regime.OK:
		lines = append(lines, "Market Check: ✅ SPY & QQQ uptrend — new entries allowed.")
	default:
		lines = append(lines, "Market Check: ⚠️ "+res.Regime.Reason+" — pause new entries.")
	}
	lines = append(lines, "")

	if len(res.Entries) > 0 {
		lines = append(lines, "Entries:")
		for _, pos := range res.Entries {
			lines = append(lines, fmt.Sprintf("%s [%s] → ENTERED @ %s | Buy Zone",
				pos.Ticker, pos.Strategy, fnum(pos.EntryPrice)))
		}
	}
	if len(res.Suppressed) > 0 {
		lines = append(lines, "Entries (suppressed by guards):")
		for _, sup := range res.Suppressed {
			lines = append(lines, fmt.Sprintf("%s [%s] → %s | Buy Zone [%s, %s]",
				sup.Ticker, sup.Strategy, sup.Reason, fnum(sup.BuyZoneLow), fnum(sup.BuyZoneHigh)))
		}
	}
	if len(res.FilterEvents) > 0 {
		lines = append(lines, "Screening filters triggered:")
		for _, ev := range res.FilterEvents {
			lines = append(lines, fmt.Sprintf("%s — %s (%s)", ev.Ticker, ev.Filter, ev.Detail))
		}
	}
	if len(res.Exits) > 0 {
		lines = append(lines, "Exits:")
		for _, pos := range res.Exits {
			lines = append(lines, fmt.Sprintf("%s [%s] → EXIT %s @ %s",
				pos.Ticker, pos.Strategy, pos.Notes, fnum(pos.ExitPrice)))
		}
	}

	open := res.OpenPositions()
	if len(open) > 0 {
		lines = append(lines, "", "Open Positions (top):")
		for i, pos := range open {
			if i >= maxOpenPositionsShown {
				break
			}
			lines = append(lines, fmt.Sprintf("%s [%s] %s%% | R_peak %s | Held %dd",
				pos.Ticker, pos.Strategy, fnum(pos.PctSinceEntry), fnum(pos.PeakR), pos.DaysHeld))
		}
	}

	if len(res.Entries) == 0 && len(res.Suppressed) == 0 && len(res.Exits) == 0 && len(open) == 0 {
		lines = append(lines, "No active positions. Review watchlist tomorrow.")
	}

	return strings.Join(lines, "\n")
}

// WriteHighlights writes the summary to a file.
func WriteHighlights(path string, res *screener.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(BuildHighlights(res)), 0o644)
}

// Markdown wraps the highlights text in a fenced block for chat rendering.
func Markdown(highlights string) string {
	return "## Highlights (Today)\n\n```\n" + strings.TrimSpace(highlights) + "\n```\n"
}

// WriteMarkdown writes the Markdown wrapper to a file.
func WriteMarkdown(path, highlights string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Markdown(highlights)), 0o644)
}

func fnum(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return fmt.Sprintf("%.2f", x)
}
