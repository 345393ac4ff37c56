// Package ledger persists one position row per ticker across runs. The
// store is read once at run start and whole-file rewritten at run end;
// there is no incremental persistence and concurrent runs against one store
// are not supported.
package ledger

import (
	"math"
	"sort"
)

// Status is the position lifecycle state.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Position is one ledger row. A ticker has at most one row; closing a
// position overwrites it in place, it does not append history. Closed rows
// are carried forward unchanged on later runs and are never re-entered.
type Position struct {
	Ticker        string
	Strategy      string
	Status        Status
	EntryDate     string // date-only ISO
	EntryPrice    float64
	ExitDate      string // empty while open
	ExitPrice     float64
	PctSinceEntry float64
	PeakR         float64 // multiple of ATR at entry; NaN when unknown
	DaysHeld      int
	HighestClose  float64
	Notes         string
}

// Open reports whether the position is still open.
func (p Position) Open() bool { return p.Status == StatusOpen }

// Store loads and saves the full ledger. Load treats a missing or
// unreadable store as empty prior state; Save replaces the whole store.
type Store interface {
	Load() (map[string]Position, error)
	Save(rows []Position) error
	Close() error
}

// SortRows orders rows for persistence and reporting: OPEN before CLOSED,
// then alphabetically by ticker.
func SortRows(rows []Position) {
	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].Status == StatusOpen) != (rows[j].Status == StatusOpen) {
			return rows[i].Status == StatusOpen
		}
		return rows[i].Ticker < rows[j].Ticker
	})
}

// Rows flattens a ledger map into sorted rows.
func Rows(m map[string]Position) []Position {
	out := make([]Position, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	SortRows(out)
	return out
}

// Round2 rounds a price or percentage to two decimals, passing NaN through.
func Round2(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return math.Round(x*100) / 100
}
