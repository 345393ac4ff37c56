package ledger

import (
	"database/sql"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the ledger in a SQLite table with the same
// whole-store-replace contract as the CSV store: Save rewrites the table
// inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite ledger at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load() (map[string]Position, error) {
	rows, err := s.db.Query(`
		SELECT ticker, strategy, status, entry_date, entry_price,
		       exit_date, exit_price, pct_since_entry, r_peak,
		       days_held, highest_close, notes
		FROM positions`)
	if err != nil {
		return map[string]Position{}, err
	}
	defer rows.Close()

	out := map[string]Position{}
	for rows.Next() {
		var p Position
		var entryDate, exitDate, notes sql.NullString
		var entryPrice, exitPrice, pct, peakR, highest sql.NullFloat64
		var daysHeld sql.NullInt64

		if err := rows.Scan(&p.Ticker, &p.Strategy, &p.Status, &entryDate, &entryPrice,
			&exitDate, &exitPrice, &pct, &peakR, &daysHeld, &highest, &notes); err != nil {
			return map[string]Position{}, err
		}

		p.EntryDate = entryDate.String
		p.EntryPrice = entryPrice.Float64
		p.ExitDate = exitDate.String
		p.ExitPrice = exitPrice.Float64
		p.PctSinceEntry = pct.Float64
		p.PeakR = nullableFloat(peakR)
		p.DaysHeld = int(daysHeld.Int64)
		p.HighestClose = highest.Float64
		p.Notes = notes.String

		out[p.Ticker] = p
	}
	return out, rows.Err()
}

// Save implements Store.
func (s *SQLiteStore) Save(rows []Position) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO positions
		(ticker, strategy, status, entry_date, entry_price,
		 exit_date, exit_price, pct_since_entry, r_peak,
		 days_held, highest_close, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range rows {
		var peakR any
		if !math.IsNaN(p.PeakR) {
			peakR = p.PeakR
		}
		var exitDate, exitPrice any
		if p.Status == StatusClosed {
			exitDate, exitPrice = p.ExitDate, p.ExitPrice
		}
		if _, err := stmt.Exec(p.Ticker, p.Strategy, string(p.Status), p.EntryDate, p.EntryPrice,
			exitDate, exitPrice, p.PctSinceEntry, peakR, p.DaysHeld, p.HighestClose, p.Notes); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func nullableFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
