package journal

const Schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	bar_time DATETIME NOT NULL,
	phase TEXT NOT NULL,
	signal TEXT NOT NULL,
	reason TEXT NOT NULL,
	risk REAL NOT NULL,
	verdict TEXT NOT NULL,
	actions INTEGER NOT NULL,
	err TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_instrument_time ON cycles(instrument, bar_time);

CREATE TABLE IF NOT EXISTS actions (
	cycle_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	instrument TEXT NOT NULL,
	kind TEXT NOT NULL,
	ticket INTEGER NOT NULL,
	direction TEXT NOT NULL,
	price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	lots REAL NOT NULL,
	rr REAL NOT NULL DEFAULT 0,
	tag TEXT NOT NULL,
	reason TEXT NOT NULL,
	err TEXT NOT NULL,
	PRIMARY KEY (cycle_id, seq)
);
`
