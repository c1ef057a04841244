package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteDispatchLogStore implements DispatchLogStore backed by SQLite.
type SQLiteDispatchLogStore struct {
	db *sql.DB
}

// NewSQLiteDispatchLogStore returns a new SQLiteDispatchLogStore.
func NewSQLiteDispatchLogStore(db *sql.DB) *SQLiteDispatchLogStore {
	return &SQLiteDispatchLogStore{db: db}
}

// Log inserts a delivery outcome record.
func (s *SQLiteDispatchLogStore) Log(ctx context.Context, entry DispatchLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_log (event_type, user_id, channel, status, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EventType, entry.UserID, entry.Channel,
		entry.Status, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch log entry: %w", err)
	}
	return nil
}

// List returns the most recent entries ordered by created_at descending.
func (s *SQLiteDispatchLogStore) List(ctx context.Context, limit int) ([]DispatchLogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, user_id, channel, status, error_msg, created_at
		FROM dispatch_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch log: %w", err)
	}
	defer rows.Close()

	var entries []DispatchLogEntry
	for rows.Next() {
		var e DispatchLogEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &e.Channel,
			&e.Status, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch log rows: %w", err)
	}
	return entries, nil
}
