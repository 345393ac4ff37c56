package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ayodukale/S-B/pkg/id"
	"github.com/Ayodukale/S-B/report"
	"github.com/Ayodukale/S-B/screener"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Post the latest run's highlights to Discord",
	Long: `Publish re-sends the artifacts of the most recent run without
rescreening. It reads the highlights text and JSON payload from the
configured output directory and posts to the configured webhooks.

Example:
  swingbot publish -f swingbot.yaml`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	highlightsPath := filepath.Join(cfg.Outputs.Dir, cfg.Outputs.HighlightsText)
	highlights, err := os.ReadFile(highlightsPath)
	if err != nil {
		return fmt.Errorf("no run artifacts found, run 'swingbot run' first: %w", err)
	}

	// The payload carries the signal rows the embed fields are built from.
	// A missing or stale payload degrades to a highlights-only embed.
	res := &screener.Result{GeneratedAt: time.Now().UTC()}
	payloadPath := filepath.Join(cfg.Outputs.Dir, cfg.Outputs.PayloadJSON)
	if data, err := os.ReadFile(payloadPath); err == nil {
		var p report.Payload
		if err := json.Unmarshal(data, &p); err == nil {
			res = resultFromPayload(p)
		}
	}

	report.NewNotifier().Notify(cmd.Context(), res, string(highlights))
	return nil
}

// resultFromPayload rebuilds the subset of a Result the notifier reads.
func resultFromPayload(p report.Payload) *screener.Result {
	res := &screener.Result{RunID: p.RunID, GeneratedAt: time.Now().UTC()}
	if t, err := time.Parse(time.RFC3339, p.GeneratedAtUTC); err == nil {
		res.GeneratedAt = t
	} else if t, err := id.Time(p.RunID); err == nil {
		res.GeneratedAt = t
	}
	for _, s := range p.Signals {
		res.Signals = append(res.Signals, screener.SignalRow{
			Date:        s.Date,
			Ticker:      s.Ticker,
			Strategy:    s.Strategy,
			Setup:       s.Setup,
			Action:      screener.Action(s.Action),
			BuyZoneLow:  deref(s.BuyZoneLow),
			BuyZoneHigh: deref(s.BuyZoneHigh),
			Close:       deref(s.Close),
			Notes:       s.Notes,
		})
	}
	return res
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
