// Package earnings resolves the next known earnings date for a ticker
// through a chain of providers, fronted by a small on-disk cache so repeated
// runs don't hammer the calendar APIs.
package earnings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Entry is one cached lookup. NextEarnings is a date-only ISO string; empty
// means the lookup ran and found no upcoming earnings, which is itself a
// cacheable fact.
type Entry struct {
	NextEarnings string `json:"next_earnings"`
	FetchedAt    string `json:"fetched_at"`
}

// Cache is a ticker-keyed store of earnings lookups persisted as a JSON
// file. Keys are uppercased tickers. Safe for concurrent use within a run.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// LoadCache reads the cache file at path. A missing or corrupt file yields
// an empty cache, never an error.
func LoadCache(path string) *Cache {
	c := &Cache{path: path, entries: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("earnings cache unreadable, starting fresh")
		c.entries = map[string]Entry{}
	}
	return c
}

// Get returns the cached entry for a ticker.
func (c *Cache) Get(ticker string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(ticker)]
	return e, ok
}

// Put overwrites the entry for a ticker.
func (c *Cache) Put(ticker string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(ticker)] = e
}

// Save writes the cache back to disk, creating parent directories as
// needed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

func key(ticker string) string { return strings.ToUpper(ticker) }
