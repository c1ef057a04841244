package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// SQLitePreferenceStore implements PreferenceStore backed by SQLite.
// The profile is a JSON document in a single column; the row is fully
// replaced on every save.
type SQLitePreferenceStore struct {
	db *sql.DB
}

// NewSQLitePreferenceStore returns a new SQLitePreferenceStore.
func NewSQLitePreferenceStore(db *sql.DB) *SQLitePreferenceStore {
	return &SQLitePreferenceStore{db: db}
}

// Get loads the profile for userID. Returns (nil, nil) when the user has
// never saved one.
func (s *SQLitePreferenceStore) Get(ctx context.Context, userID string) (*prefs.Profile, error) {
	var raw string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT profile, updated_at FROM preference_profiles WHERE user_id = ?`,
		userID).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying preference profile: %w", err)
	}

	var p prefs.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parsing preference profile for %q: %w", userID, err)
	}
	p.UserID = userID
	p.UpdatedAt = updatedAt
	return &p, nil
}

// Put saves the profile, replacing any existing row for the user.
func (s *SQLitePreferenceStore) Put(ctx context.Context, profile *prefs.Profile) error {
	if profile.UserID == "" {
		return errors.New("preference profile requires a user id")
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding preference profile: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preference_profiles (user_id, profile, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		profile.UserID, string(raw), now)
	if err != nil {
		return fmt.Errorf("saving preference profile: %w", err)
	}
	return nil
}
