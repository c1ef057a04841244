package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteSubscriptionStore implements SubscriptionStore backed by SQLite.
type SQLiteSubscriptionStore struct {
	db *sql.DB
}

// NewSQLiteSubscriptionStore returns a new SQLiteSubscriptionStore.
func NewSQLiteSubscriptionStore(db *sql.DB) *SQLiteSubscriptionStore {
	return &SQLiteSubscriptionStore{db: db}
}

// Save upserts a subscription keyed by endpoint, reactivating it if it was
// previously invalidated.
func (s *SQLiteSubscriptionStore) Save(ctx context.Context, sub *PushSubscription) error {
	created := sub.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (endpoint, user_id, keys, active, expires_at, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			keys = excluded.keys,
			active = 1,
			expires_at = excluded.expires_at`,
		sub.Endpoint, sub.UserID, sub.Keys, sub.ExpiresAt, created)
	if err != nil {
		return fmt.Errorf("saving push subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription for (userID, endpoint).
func (s *SQLiteSubscriptionStore) Delete(ctx context.Context, userID, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?`,
		userID, endpoint)
	if err != nil {
		return fmt.Errorf("deleting push subscription: %w", err)
	}
	return nil
}

// Invalidate soft-disables the subscription with the given endpoint.
func (s *SQLiteSubscriptionStore) Invalidate(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET active = 0 WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("invalidating push subscription: %w", err)
	}
	return nil
}

// ListActive returns the user's active, unexpired subscriptions.
func (s *SQLiteSubscriptionStore) ListActive(ctx context.Context, userID string) ([]PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint, user_id, keys, active, expires_at, created_at
		FROM push_subscriptions
		WHERE user_id = ? AND active = 1 AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at`,
		userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("querying push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		var active int
		var expires sql.NullTime
		if err := rows.Scan(&sub.Endpoint, &sub.UserID, &sub.Keys, &active, &expires, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning push subscription row: %w", err)
		}
		sub.Active = active != 0
		if expires.Valid {
			t := expires.Time
			sub.ExpiresAt = &t
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating push subscription rows: %w", err)
	}
	return subs, nil
}

// PurgeExpired deletes subscriptions past their expiry.
func (s *SQLiteSubscriptionStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE expires_at IS NOT NULL AND expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("purging expired push subscriptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading purge row count: %w", err)
	}
	return n, nil
}
