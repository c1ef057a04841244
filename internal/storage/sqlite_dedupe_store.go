package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// SQLiteDedupeStore implements DedupeStore backed by SQLite. The uniqueness
// constraint on the fingerprint column is the atomicity guarantee: a
// conditional insert either claims the fingerprint or hits the existing row.
type SQLiteDedupeStore struct {
	db *sql.DB
}

// NewSQLiteDedupeStore returns a new SQLiteDedupeStore.
func NewSQLiteDedupeStore(db *sql.DB) *SQLiteDedupeStore {
	return &SQLiteDedupeStore{db: db}
}

// Reserve claims the fingerprint until expiresAt. An expired row for the
// same fingerprint is reclaimed in the same transaction, so re-delivery
// after the window elapses succeeds. Returns ErrDuplicate when an unexpired
// row exists.
func (s *SQLiteDedupeStore) Reserve(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dedupe reserve: %w", err)
	}

	// Drop an expired claim first so the insert below can take its place.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dedupe_keys WHERE fingerprint = ? AND expires_at <= ?`,
		fingerprint, time.Now().UTC()); err != nil {
		rollback(tx, "dedupe expiry cleanup")
		return fmt.Errorf("clearing expired dedupe record: %w", err)
	}

	// INSERT OR IGNORE leaves RowsAffected at zero when the fingerprint is
	// already claimed; that is the duplicate signal, not an error.
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO dedupe_keys (fingerprint, expires_at) VALUES (?, ?)`,
		fingerprint, expiresAt.UTC())
	if err != nil {
		rollback(tx, "dedupe insert")
		return fmt.Errorf("inserting dedupe record: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		rollback(tx, "dedupe insert count")
		return fmt.Errorf("reading dedupe insert count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dedupe reserve: %w", err)
	}
	if inserted == 0 {
		return ErrDuplicate
	}
	return nil
}

// PurgeExpired removes all expired fingerprints.
func (s *SQLiteDedupeStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dedupe_keys WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging dedupe records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading purge row count: %w", err)
	}
	return n, nil
}

func rollback(tx *sql.Tx, what string) {
	if err := tx.Rollback(); err != nil {
		log.Printf("rollback after %s failed: %v", what, err)
	}
}
