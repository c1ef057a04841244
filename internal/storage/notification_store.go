package storage

import (
	"context"
	"time"
)

// Notification is the authoritative persisted record for the in-app inbox.
// It is written exactly once per (event, recipient) pair that passed the
// dedupe gate; external channel outcomes are tracked separately in the
// dispatch log and never roll this row back.
type Notification struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Priority   string     `json:"priority"`
	ResourceID string     `json:"resource_id,omitempty"`
	ActorID    string     `json:"actor_id,omitempty"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NotificationFilter narrows a notification listing. Zero-valued fields
// match everything.
type NotificationFilter struct {
	Read       *bool
	Type       string
	ResourceID string
}

// Page bounds a listing. A non-positive limit falls back to a default.
type Page struct {
	Limit  int
	Offset int
}

// NotificationStore defines the interface for persisting notifications.
type NotificationStore interface {
	// Create inserts a new notification row.
	Create(ctx context.Context, n *Notification) error
	// List returns the user's notifications matching the filter, newest first.
	List(ctx context.Context, userID string, f NotificationFilter, p Page) ([]Notification, error)
	// UnreadCount returns the number of unread notifications for the user.
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkRead sets the read flag on the given notification IDs owned by userID.
	MarkRead(ctx context.Context, userID string, ids []string) error
	// MarkAllRead sets the read flag on every unread notification of userID.
	MarkAllRead(ctx context.Context, userID string) error
	// Delete removes the given notification IDs owned by userID.
	Delete(ctx context.Context, userID string, ids []string) error
	// DeleteAll removes every notification of userID.
	DeleteAll(ctx context.Context, userID string) error
	// PurgeOlderThan removes notifications created before cutoff and returns
	// how many rows were deleted. Used by the retention sweep.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
