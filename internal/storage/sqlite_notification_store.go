package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const defaultListLimit = 50

// SQLiteNotificationStore implements NotificationStore backed by SQLite.
type SQLiteNotificationStore struct {
	db *sql.DB
}

// NewSQLiteNotificationStore returns a new SQLiteNotificationStore.
func NewSQLiteNotificationStore(db *sql.DB) *SQLiteNotificationStore {
	return &SQLiteNotificationStore{db: db}
}

// Create inserts a notification row.
func (s *SQLiteNotificationStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, priority, resource_id, actor_id, read, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Priority,
		n.ResourceID, n.ActorID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// List returns notifications for userID matching f, newest first.
func (s *SQLiteNotificationStore) List(ctx context.Context, userID string, f NotificationFilter, p Page) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, priority, resource_id, actor_id, read, read_at, created_at
		FROM notifications
		WHERE user_id = ?`
	args := []any{userID}

	if f.Read != nil {
		query += ` AND read = ?`
		args = append(args, boolToInt(*f.Read))
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.ResourceID != "" {
		query += ` AND resource_id = ?`
		args = append(args, f.ResourceID)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		var n Notification
		var read int
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Priority,
			&n.ResourceID, &n.ActorID, &read, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = read != 0
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	return list, nil
}

// UnreadCount returns the number of unread rows for userID.
func (s *SQLiteNotificationStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags the given IDs as read if they belong to userID.
func (s *SQLiteNotificationStore) MarkRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE notifications SET read = 1, read_at = ?
		WHERE user_id = ? AND read = 0 AND id IN (%s)`, placeholders(len(ids)))
	args := append([]any{time.Now().UTC(), userID}, idsToArgs(ids)...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread row of userID as read.
func (s *SQLiteNotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ? WHERE user_id = ? AND read = 0`,
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// Delete removes the given IDs if they belong to userID.
func (s *SQLiteNotificationStore) Delete(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(
		`DELETE FROM notifications WHERE user_id = ? AND id IN (%s)`, placeholders(len(ids)))
	args := append([]any{userID}, idsToArgs(ids)...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting notifications: %w", err)
	}
	return nil
}

// DeleteAll removes every row of userID.
func (s *SQLiteNotificationStore) DeleteAll(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting all notifications: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes rows created before cutoff.
func (s *SQLiteNotificationStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading purge row count: %w", err)
	}
	return n, nil
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idsToArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
