package storage

import (
	"context"
	"time"
)

// PushSubscription is a registered push endpoint for one user. Invalidation
// is soft: a send attempt that reports the endpoint gone flips Active off,
// and an explicit unsubscribe deletes the row.
type PushSubscription struct {
	UserID    string     `json:"user_id"`
	Endpoint  string     `json:"endpoint"`
	Keys      string     `json:"keys"` // opaque channel-specific key material, JSON
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SubscriptionStore persists push subscriptions.
type SubscriptionStore interface {
	// Save registers (or re-registers) a subscription. Re-registering an
	// endpoint reactivates it and refreshes its keys and expiry.
	Save(ctx context.Context, sub *PushSubscription) error
	// Delete removes the subscription for (userID, endpoint).
	Delete(ctx context.Context, userID, endpoint string) error
	// Invalidate soft-disables the subscription with the given endpoint.
	Invalidate(ctx context.Context, endpoint string) error
	// ListActive returns the user's active, unexpired subscriptions.
	ListActive(ctx context.Context, userID string) ([]PushSubscription, error)
	// PurgeExpired deletes subscriptions whose expiry has passed, returning
	// how many rows were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
