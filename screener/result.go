package screener

import (
	"sort"
	"time"

	"github.com/Ayodukale/S-B/ledger"
	"github.com/Ayodukale/S-B/regime"
)

// Action classifies what today's bar means for a ticker.
type Action string

const (
	ActionWatch          Action = "WATCH"
	ActionBuyZone        Action = "BUY_ZONE_TRIGGERED"
	ActionEarningsGuard  Action = "EARNINGS_GUARD_ACTIVE"
	ActionMarketFilter   Action = "MARKET_FILTER_ACTIVE"
	ActionWaitForPullbck Action = "WAIT_FOR_PULLBACK"
	ActionExitCandidate  Action = "EXIT_CANDIDATE"
)

// Filter names the pre-filters that exclude a ticker from evaluation.
type Filter string

const (
	FilterInsufficientHistory Filter = "INSUFFICIENT_HISTORY"
	FilterLowDollarVolume     Filter = "LOW_DOLLAR_VOLUME"
	FilterGap                 Filter = "GAP_FILTER_TRIGGERED"
	FilterDataSanity          Filter = "DATA_SANITY_FLAG"
)

// SignalRow is the per-run snapshot for one setup ticker. It is regenerated
// fully every run and never persisted.
type SignalRow struct {
	Date         string
	Ticker       string
	Strategy     string
	Setup        bool
	Action       Action
	BuyZoneLow   float64
	BuyZoneHigh  float64
	ConfirmToday bool
	Close        float64
	EMA9         float64
	EMA20        float64
	ATR14        float64 // NaN until enough history
	Volume       float64
	Vol20        float64 // NaN until enough history
	Notes        string
	MarketOK     *bool // nil when the market check was skipped
	MarketReason string
	NextEarnings string // date-only ISO, empty when unknown
}

// FilterEvent records a ticker excluded by a pre-filter.
type FilterEvent struct {
	Ticker string
	Filter Filter
	Detail string
}

// SuppressedEntry records an entry that the earnings guard or market filter
// blocked.
type SuppressedEntry struct {
	Ticker      string
	Strategy    string
	BuyZoneLow  float64
	BuyZoneHigh float64
	Close       float64
	Reason      string
}

// Result is everything one run produces: the signal rows, the next ledger,
// and the highlight lists the report writers render.
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Regime      regime.Verdict

	Signals []SignalRow
	Ledger  map[string]ledger.Position

	Entries      []ledger.Position
	Exits        []ledger.Position
	Suppressed   []SuppressedEntry
	FilterEvents []FilterEvent
}

// LedgerRows returns the final ledger sorted for persistence: OPEN before
// CLOSED, then by ticker.
func (r *Result) LedgerRows() []ledger.Position {
	return ledger.Rows(r.Ledger)
}

// OpenPositions returns open rows sorted by percent-since-entry, best
// first, for the highlights summary.
func (r *Result) OpenPositions() []ledger.Position {
	var out []ledger.Position
	for _, p := range r.Ledger {
		if p.Open() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PctSinceEntry > out[j].PctSinceEntry
	})
	return out
}
