package turning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendengine/market"

	_ "github.com/mattn/go-sqlite3"
)

const Schema = `
CREATE TABLE IF NOT EXISTS turning_points (
	key TEXT PRIMARY KEY,
	turning INTEGER NOT NULL,
	last_direction INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore persists records in a SQLite table, one row per key.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open turning store: %w", err)
	}
	// One writer; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create turning schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (Record, error) {
	var (
		turning, dir int
		updated      int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT turning, last_direction, updated_at FROM turning_points WHERE key = ?`, key,
	).Scan(&turning, &dir, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Initial(), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load turning %s: %w", key, err)
	}
	return Record{
		Turning:       turning != 0,
		LastDirection: market.Direction(dir),
		UpdatedAt:     time.Unix(updated, 0).UTC(),
	}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turning_points (key, turning, last_direction, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			turning = excluded.turning,
			last_direction = excluded.last_direction,
			updated_at = excluded.updated_at`,
		key, boolInt(rec.Turning), int(rec.LastDirection), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save turning %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) CompareAndSwap(ctx context.Context, key string, prev, next Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("cas turning %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if prev.Same(Initial()) {
		// A key that was never written matches the initial record.
		res, err = tx.ExecContext(ctx, `
			INSERT INTO turning_points (key, turning, last_direction, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING`,
			key, boolInt(next.Turning), int(next.LastDirection), next.UpdatedAt.Unix(),
		)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 1 {
				return true, tx.Commit()
			}
		}
	}
	if err != nil {
		return false, fmt.Errorf("cas turning %s: %w", key, err)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE turning_points
		SET turning = ?, last_direction = ?, updated_at = ?
		WHERE key = ? AND turning = ? AND last_direction = ? AND updated_at = ?`,
		boolInt(next.Turning), int(next.LastDirection), next.UpdatedAt.Unix(),
		key, boolInt(prev.Turning), int(prev.LastDirection), prev.UpdatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("cas turning %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cas turning %s: %w", key, err)
	}
	if n != 1 {
		return false, nil
	}
	return true, tx.Commit()
}

// Keys lists stored keys in order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM turning_points ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list turning keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
