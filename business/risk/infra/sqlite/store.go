// Package sqlite persists risk history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/risk/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	ts    INTEGER NOT NULL,
	value TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON portfolio_snapshots (ts);

CREATE TABLE IF NOT EXISTS pnl_entries (
	ts     INTEGER NOT NULL,
	symbol TEXT    NOT NULL,
	pnl    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pnl_ts ON pnl_entries (ts);
`

// Store is the SQLite-backed risk history. Decimals are stored as text so
// nothing is lost to float rounding.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveSnapshot inserts s and drops snapshots past the retention window.
func (s *Store) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	cutoff := snap.Timestamp.Add(-domain.SnapshotRetention)
	return s.insertAndPrune(ctx,
		`INSERT INTO portfolio_snapshots (ts, value) VALUES (?, ?)`,
		[]any{snap.Timestamp.UnixNano(), snap.Value.String()},
		`DELETE FROM portfolio_snapshots WHERE ts <= ?`, cutoff)
}

// SavePnL inserts e and drops entries past the retention window.
func (s *Store) SavePnL(ctx context.Context, e domain.PnLEntry) error {
	cutoff := e.Timestamp.Add(-domain.PnLRetention)
	return s.insertAndPrune(ctx,
		`INSERT INTO pnl_entries (ts, symbol, pnl) VALUES (?, ?, ?)`,
		[]any{e.Timestamp.UnixNano(), e.Symbol, e.PnL.String()},
		`DELETE FROM pnl_entries WHERE ts <= ?`, cutoff)
}

func (s *Store) insertAndPrune(ctx context.Context, insert string, args []any, prune string, cutoff time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, prune, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return tx.Commit()
}

// Snapshots returns snapshots newer than since, oldest first.
func (s *Store) Snapshots(ctx context.Context, since time.Time) ([]domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM portfolio_snapshots WHERE ts > ? ORDER BY ts`, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var ts int64
		var raw string
		if err := rows.Scan(&ts, &raw); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot value %q: %w", raw, err)
		}
		out = append(out, domain.Snapshot{Timestamp: time.Unix(0, ts), Value: v})
	}
	return out, rows.Err()
}

// PnLEntries returns PnL entries newer than since, oldest first.
func (s *Store) PnLEntries(ctx context.Context, since time.Time) ([]domain.PnLEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, symbol, pnl FROM pnl_entries WHERE ts > ? ORDER BY ts`, since.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PnLEntry
	for rows.Next() {
		var ts int64
		var symbol, raw string
		if err := rows.Scan(&ts, &symbol, &raw); err != nil {
			return nil, err
		}
		pnl, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("pnl %q: %w", raw, err)
		}
		out = append(out, domain.PnLEntry{Timestamp: time.Unix(0, ts), Symbol: symbol, PnL: pnl})
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
