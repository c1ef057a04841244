package storage

import (
	"context"
	"time"
)

// Contact holds the delivery addresses the external channels need for one
// user. The surrounding application owns user identity; it syncs the
// channel-relevant fields here so the engine can address sends without
// calling back into it on the hot path.
type Contact struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContactStore persists user delivery addresses.
type ContactStore interface {
	// Get returns the contact for userID, or (nil, nil) when none is synced.
	Get(ctx context.Context, userID string) (*Contact, error)
	// Put saves the contact, replacing any existing row.
	Put(ctx context.Context, c *Contact) error
}
