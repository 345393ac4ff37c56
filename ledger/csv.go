package ledger

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

var csvHeader = []string{
	"ticker", "strategy", "status",
	"entry_date", "entry_price", "exit_date", "exit_price",
	"pct_since_entry", "r_peak", "days_held", "highest_close", "notes",
}

// CSVStore keeps the ledger in a single CSV file. Save writes a temp file
// in the same directory and renames it over the target, so a crash mid-run
// never leaves a half-written ledger behind.
type CSVStore struct {
	path string
}

// NewCSV builds a CSV ledger store at path.
func NewCSV(path string) *CSVStore { return &CSVStore{path: path} }

// Load implements Store. A missing file is an empty ledger; malformed rows
// are skipped rather than failing the run.
func (s *CSVStore) Load() (map[string]Position, error) {
	out := map[string]Position{}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return map[string]Position{}, fmt.Errorf("parse ledger csv: %w", err)
	}

	for i, rec := range records {
		if i == 0 || len(rec) < len(csvHeader) {
			continue
		}
		p := Position{
			Ticker:        rec[0],
			Strategy:      orDefault(rec[1], "BASE"),
			Status:        Status(orDefault(rec[2], string(StatusOpen))),
			EntryDate:     rec[3],
			EntryPrice:    parseFloatOr(rec[4], 0),
			ExitDate:      rec[5],
			ExitPrice:     parseFloatOr(rec[6], 0),
			PctSinceEntry: parseFloatOr(rec[7], 0),
			PeakR:         parseFloatOr(rec[8], math.NaN()),
			DaysHeld:      parseInt(rec[9]),
			HighestClose:  parseFloatOr(rec[10], 0),
			Notes:         rec[11],
		}
		if p.Ticker == "" {
			continue
		}
		out[p.Ticker] = p
	}
	return out, nil
}

// Save implements Store.
func (s *CSVStore) Save(rows []Position) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range rows {
		exitPrice := ""
		if p.Status == StatusClosed {
			exitPrice = formatFloat(p.ExitPrice)
		}
		rec := []string{
			p.Ticker,
			p.Strategy,
			string(p.Status),
			p.EntryDate,
			formatFloat(p.EntryPrice),
			p.ExitDate,
			exitPrice,
			formatFloat(p.PctSinceEntry),
			formatFloat(p.PeakR),
			strconv.Itoa(p.DaysHeld),
			formatFloat(p.HighestClose),
			p.Notes,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Close implements Store.
func (s *CSVStore) Close() error { return nil }

func parseFloatOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
