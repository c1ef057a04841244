package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteContactStore implements ContactStore backed by SQLite.
type SQLiteContactStore struct {
	db *sql.DB
}

// NewSQLiteContactStore returns a new SQLiteContactStore.
func NewSQLiteContactStore(db *sql.DB) *SQLiteContactStore {
	return &SQLiteContactStore{db: db}
}

// Get loads the contact row for userID, or (nil, nil) when absent.
func (s *SQLiteContactStore) Get(ctx context.Context, userID string) (*Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, phone, telegram_chat_id, updated_at
		FROM user_contacts WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.Email, &c.Phone, &c.TelegramChatID, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying contact: %w", err)
	}
	return &c, nil
}

// Put upserts the contact row for the user.
func (s *SQLiteContactStore) Put(ctx context.Context, c *Contact) error {
	if c.UserID == "" {
		return errors.New("contact requires a user id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_contacts (user_id, email, phone, telegram_chat_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			telegram_chat_id = excluded.telegram_chat_id,
			updated_at = excluded.updated_at`,
		c.UserID, c.Email, c.Phone, c.TelegramChatID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving contact: %w", err)
	}
	return nil
}
