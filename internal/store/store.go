package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// schema is applied on every Open. Both tables are keyed by their natural
// provider-side id and must survive process restarts; imported_transactions
// rows are permanent tombstones and are never updated or deleted.
const schema = `
CREATE TABLE IF NOT EXISTS watermarks (
	plaid_account_id TEXT PRIMARY KEY,
	last_poll TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imported_transactions (
	plaid_txn_id TEXT PRIMARY KEY,
	firefly_id TEXT
);
`

// Store persists sync state (per-account watermarks and the imported
// transaction ledger) in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps point writes durable without blocking reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Watermark returns the last-poll cursor for the given provider account. The
// second return value is false when the account has never been synced.
func (s *Store) Watermark(ctx context.Context, accountID string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT last_poll FROM watermarks WHERE plaid_account_id = ?", accountID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query watermark for %s: %w", accountID, err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt watermark for %s: %w", accountID, err)
	}
	return t, true, nil
}

// SetWatermark creates or replaces the cursor for the given provider account.
func (s *Store) SetWatermark(ctx context.Context, accountID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watermarks (plaid_account_id, last_poll) VALUES (?, ?)
		ON CONFLICT(plaid_account_id) DO UPDATE SET last_poll = excluded.last_poll`,
		accountID, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set watermark for %s: %w", accountID, err)
	}
	return nil
}

// Imported looks up the dedup record for a provider transaction id. It
// returns the Firefly id the transaction was stored under (nil when it was
// intentionally dropped) and whether a record exists at all.
func (s *Store) Imported(ctx context.Context, txnID string) (*string, bool, error) {
	var fireflyID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT firefly_id FROM imported_transactions WHERE plaid_txn_id = ?", txnID,
	).Scan(&fireflyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query imported transaction %s: %w", txnID, err)
	}
	if !fireflyID.Valid {
		return nil, true, nil
	}
	return &fireflyID.String, true, nil
}

// RecordImported writes the dedup tombstone for a provider transaction id. A
// nil fireflyID records an intentional drop. The primary key rejects a second
// record for the same transaction.
func (s *Store) RecordImported(ctx context.Context, txnID string, fireflyID *string) error {
	var value sql.NullString
	if fireflyID != nil {
		value = sql.NullString{String: *fireflyID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO imported_transactions (plaid_txn_id, firefly_id) VALUES (?, ?)",
		txnID, value)
	if err != nil {
		return fmt.Errorf("failed to record imported transaction %s: %w", txnID, err)
	}
	return nil
}
