package ledger

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	ticker TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	entry_date TEXT,
	entry_price REAL,
	exit_date TEXT,
	exit_price REAL,
	pct_since_entry REAL,
	r_peak REAL,
	days_held INTEGER,
	highest_close REAL,
	notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
`
