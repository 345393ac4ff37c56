// Package feed fetches daily OHLCV histories. Providers are tried in
// preference order; any error or empty answer moves on to the next, and the
// synthetic generator at the end of the chain means a fetch always yields
// something with honest provenance.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayodukale/S-B/market"
)

// Provider supplies a daily bar history for one symbol from start to today.
type Provider interface {
	Name() string
	DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error)
}

// Chain tries each provider in order and returns the first non-empty
// series.
type Chain struct {
	providers []Provider
}

// NewChain builds a provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name implements Provider.
func (c *Chain) Name() string { return "chain" }

// DailyBars implements Provider. It only errors when every provider in the
// chain fails, which cannot happen when the chain ends in Synthetic.
func (c *Chain) DailyBars(ctx context.Context, symbol string, start time.Time) (market.Series, error) {
	for _, p := range c.providers {
		s, err := p.DailyBars(ctx, symbol, start)
		if err != nil {
			log.Debug().Str("symbol", symbol).Str("provider", p.Name()).Err(err).
				Msg("bar fetch failed, trying next provider")
			continue
		}
		if s.Empty() {
			continue
		}
		s.Sort()
		if err := s.Validate(); err != nil {
			log.Warn().Str("symbol", symbol).Str("provider", p.Name()).Err(err).
				Msg("provider returned invalid series, trying next")
			continue
		}
		return s, nil
	}
	return market.Series{}, fmt.Errorf("no provider returned bars for %s", symbol)
}
