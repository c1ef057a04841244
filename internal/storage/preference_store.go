package storage

import (
	"context"

	"github.com/lettera-hq/notifier/internal/prefs"
)

// PreferenceStore persists per-user notification preference profiles.
// Profiles are stored as a single replaceable row per user.
type PreferenceStore interface {
	// Get returns the user's profile, or (nil, nil) when none is saved.
	Get(ctx context.Context, userID string) (*prefs.Profile, error)
	// Put saves the full profile, replacing any existing row.
	Put(ctx context.Context, profile *prefs.Profile) error
}
