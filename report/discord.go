package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayodukale/S-B/screener"
)

const (
	discordEnvPrimary   = "DISCORD_WEBHOOK_SWINGBOT"
	discordEnvSecondary = "DISCORD_WEBHOOK_SWINGBOT_2"

	embedColor      = 0x2563EB
	maxDescription  = 4000
	maxEmbedFields  = 5
	fallbackSignals = 3
)

// Notifier posts the run summary to Discord webhooks. A failed post is
// logged and skipped; notification never fails the run.
type Notifier struct {
	client *http.Client
	urls   []string
}

// NewNotifier reads webhook URLs from the environment. With no URLs
// configured the notifier is a no-op.
func NewNotifier() *Notifier {
	var urls []string
	for _, key := range []string{discordEnvPrimary, discordEnvSecondary} {
		if u := os.Getenv(key); u != "" {
			urls = append(urls, u)
		}
	}
	return &Notifier{
		client: &http.Client{Timeout: 15 * time.Second},
		urls:   urls,
	}
}

type webhookPayload struct {
	Username string         `json:"username"`
	Embeds   []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []webhookField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notify posts the highlights plus the most actionable signal rows.
func (n *Notifier) Notify(ctx context.Context, res *screener.Result, highlights string) {
	if len(n.urls) == 0 {
		log.Debug().Msg("no discord webhooks configured")
		return
	}

	payload := webhookPayload{
		Username: "SwingBot",
		Embeds: []webhookEmbed{{
			Title:       "SwingBot EOD Update",
			Description: clip(highlights, maxDescription),
			Color:       embedColor,
			Fields:      signalFields(res.Signals),
			Timestamp:   res.GeneratedAt.UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("discord payload marshal failed")
		return
	}

	for _, url := range n.urls {
		if err := n.post(ctx, url, body); err != nil {
			log.Warn().Err(err).Msg("discord webhook failed")
			continue
		}
		log.Info().Msg("discord notification sent")
	}
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

// signalFields picks the rows worth an embed field: actionable entries
// first, then the leading rows when nothing actionable fired.
func signalFields(rows []screener.SignalRow) []webhookField {
	actionable := map[screener.Action]bool{
		screener.ActionBuyZone:       true,
		screener.ActionEarningsGuard: true,
	}

	var picked []screener.SignalRow
	for _, r := range rows {
		if actionable[r.Action] {
			picked = append(picked, r)
		}
	}
	if len(picked) == 0 {
		limit := fallbackSignals
		if len(rows) < limit {
			limit = len(rows)
		}
		picked = rows[:limit]
	}
	if len(picked) > maxEmbedFields {
		picked = picked[:maxEmbedFields]
	}

	var fields []webhookField
	for _, r := range picked {
		fields = append(fields, webhookField{
			Name: fmt.Sprintf("%s — %s", r.Ticker, r.Action),
			Value: fmt.Sprintf("Close %s | Zone [%s, %s]",
				fnum(r.Close), fnum(r.BuyZoneLow), fnum(r.BuyZoneHigh)),
			Inline: false,
		})
	}
	return fields
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
