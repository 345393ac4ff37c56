package earnings

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ayodukale/S-B/market"
)

// DefaultTTLDays is how long a cached lookup stays valid before a refetch.
const DefaultTTLDays = 3

// Source looks up the next upcoming earnings date for a ticker. found=false
// with a nil error means the provider answered but knows of no upcoming
// earnings; an error means the provider could not answer at all.
type Source interface {
	Name() string
	NextEarnings(ctx context.Context, ticker string) (date time.Time, found bool, err error)
}

// Guard answers "when does this ticker next report earnings" from the cache
// when fresh, otherwise from the first source that produces a date. It never
// fails: an unresolvable lookup is equivalent to "no known earnings".
type Guard struct {
	cache   *Cache
	sources []Source
	ttlDays int
	now     func() time.Time
}

// NewGuard builds a guard over the given cache and ordered sources.
func NewGuard(cache *Cache, ttlDays int, sources ...Source) *Guard {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	return &Guard{cache: cache, sources: sources, ttlDays: ttlDays, now: time.Now}
}

// NextEarnings returns the next known earnings date for ticker, or
// found=false when none is known.
func (g *Guard) NextEarnings(ctx context.Context, ticker string) (time.Time, bool) {
	today := g.now().UTC()

	if e, ok := g.cache.Get(ticker); ok {
		if fetched, err := market.ParseDay(e.FetchedAt); err == nil &&
			market.DaysBetween(fetched, today) <= g.ttlDays {
			if e.NextEarnings == "" {
				// A fresh "no upcoming earnings" answer is still an answer.
				return time.Time{}, false
			}
			if d, err := market.ParseDay(e.NextEarnings); err == nil {
				return d, true
			}
			// Unparseable cached date falls through to a refetch.
		}
	}

	date, found := g.fetch(ctx, ticker)

	entry := Entry{FetchedAt: market.Day(today)}
	if found {
		entry.NextEarnings = market.Day(date)
	}
	g.cache.Put(ticker, entry)

	return date, found
}

// fetch walks the source chain; the first source that yields a date wins.
// Errors and empty answers skip to the next source, not retried.
func (g *Guard) fetch(ctx context.Context, ticker string) (time.Time, bool) {
	for _, src := range g.sources {
		date, found, err := src.NextEarnings(ctx, ticker)
		if err != nil {
			log.Debug().Str("ticker", ticker).Str("source", src.Name()).Err(err).
				Msg("earnings lookup failed, trying next source")
			continue
		}
		if found {
			return date, true
		}
	}
	return time.Time{}, false
}
