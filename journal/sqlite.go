package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/trendengine/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordCycle(c CycleRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO cycles
		(id, instrument, bar_time, phase, signal, reason, risk, verdict, actions, err)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Instrument, c.BarTime.UTC(), c.Phase.String(), c.Signal, c.Reason,
		c.Risk, c.Verdict, c.Actions, c.Err,
	)
	if err != nil {
		return fmt.Errorf("record cycle %s: %w", c.ID, err)
	}
	return nil
}

func (j *SQLite) RecordAction(a ActionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO actions
		(cycle_id, seq, instrument, kind, ticket, direction, price, stop_loss, take_profit, lots, rr, tag, reason, err)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CycleID, a.Seq, a.Instrument, a.Kind, a.Ticket, a.Direction.String(),
		a.Price, a.StopLoss, a.TakeProfit, a.Lots, a.RR, a.Tag, a.Reason, a.Err,
	)
	if err != nil {
		return fmt.Errorf("record action %s/%d: %w", a.CycleID, a.Seq, err)
	}
	return nil
}

// ListCycles returns the instrument's cycles with bar time in [start, end).
func (j *SQLite) ListCycles(instrument string, start, end time.Time) ([]CycleRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, instrument, bar_time, phase, signal, reason, risk, verdict, actions, err
		FROM cycles
		WHERE instrument = ? AND bar_time >= ? AND bar_time < ?
		ORDER BY bar_time ASC, id ASC`, instrument, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var (
			c     CycleRecord
			phase string
		)
		if err := rows.Scan(&c.ID, &c.Instrument, &c.BarTime, &phase, &c.Signal, &c.Reason,
			&c.Risk, &c.Verdict, &c.Actions, &c.Err); err != nil {
			return nil, err
		}
		if c.Phase, err = market.ParsePhase(phase); err != nil {
			return nil, fmt.Errorf("cycle %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActions returns a cycle's actions in dispatch order.
func (j *SQLite) ListActions(cycleID string) ([]ActionRecord, error) {
	rows, err := j.db.Query(`
		SELECT cycle_id, seq, instrument, kind, ticket, direction, price, stop_loss, take_profit, lots, rr, tag, reason, err
		FROM actions
		WHERE cycle_id = ?
		ORDER BY seq ASC`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var (
			a   ActionRecord
			dir string
		)
		if err := rows.Scan(&a.CycleID, &a.Seq, &a.Instrument, &a.Kind, &a.Ticket, &dir,
			&a.Price, &a.StopLoss, &a.TakeProfit, &a.Lots, &a.RR, &a.Tag, &a.Reason, &a.Err); err != nil {
			return nil, err
		}
		if a.Direction, err = market.ParseDirection(dir); err != nil {
			return nil, fmt.Errorf("action %s/%d: %w", a.CycleID, a.Seq, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
