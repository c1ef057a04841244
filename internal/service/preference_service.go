package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/quiet"
	"github.com/lettera-hq/notifier/internal/storage"
)

// PreferenceService manages per-user notification preference profiles.
type PreferenceService interface {
	// Get returns the user's effective profile. A user who never configured
	// anything gets the defaults, not an error.
	Get(ctx context.Context, userID string) (*prefs.Profile, error)

	// Update merges a partial patch over the current profile, persists the
	// result and returns it. Unknown event types, channels or malformed
	// quiet windows are rejected as validation errors.
	Update(ctx context.Context, userID string, patch prefs.Patch) (*prefs.Profile, error)
}

// ProfileInvalidator drops a cached profile after a write. The dispatch
// pipeline's read-through cache implements it.
type ProfileInvalidator interface {
	Invalidate(userID string)
}

type preferenceService struct {
	repo   storage.PreferenceStore
	cache  ProfileInvalidator
	logger *slog.Logger
}

// NewPreferenceService returns a PreferenceService backed by the given
// store. cache may be nil when no read-through cache is in front of it.
func NewPreferenceService(repo storage.PreferenceStore, cache ProfileInvalidator, logger *slog.Logger) PreferenceService {
	return &preferenceService{repo: repo, cache: cache, logger: logger}
}

func (s *preferenceService) Get(ctx context.Context, userID string) (*prefs.Profile, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading preference profile: %w", err)
	}
	if profile == nil {
		return prefs.NewProfile(userID), nil
	}
	return profile, nil
}

func (s *preferenceService) Update(ctx context.Context, userID string, patch prefs.Patch) (*prefs.Profile, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user id is required"}
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading preference profile: %w", err)
	}
	if profile == nil {
		profile = prefs.NewProfile(userID)
	}

	profile.Apply(patch)
	profile.UpdatedAt = time.Now()
	if err := s.repo.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving preference profile: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}

	s.logger.Info("preference profile updated", "user_id", userID)
	return profile, nil
}

func validatePatch(patch prefs.Patch) error {
	for typ, route := range patch.Routes {
		if !typ.Known() {
			return &ValidationError{Field: "routes", Message: fmt.Sprintf("unknown event type %q", typ)}
		}
		for _, ch := range route.Channels {
			if !ch.Known() {
				return &ValidationError{Field: "routes", Message: fmt.Sprintf("unknown channel %q", ch)}
			}
		}
		if route.Priority != "" && !route.Priority.Known() {
			return &ValidationError{Field: "routes", Message: fmt.Sprintf("unknown priority %q", route.Priority)}
		}
	}
	if q := patch.Quiet; q != nil && q.Enabled {
		if !quiet.ValidClock(q.Start) {
			return &ValidationError{Field: "quiet_hours.start", Message: fmt.Sprintf("invalid clock value %q", q.Start)}
		}
		if !quiet.ValidClock(q.End) {
			return &ValidationError{Field: "quiet_hours.end", Message: fmt.Sprintf("invalid clock value %q", q.End)}
		}
		if q.Mode != prefs.QuietModeAll && q.Mode != prefs.QuietModeImportantOnly {
			return &ValidationError{Field: "quiet_hours.mode", Message: fmt.Sprintf("unknown mode %q", q.Mode)}
		}
	}
	if d := patch.Digest; d != nil {
		switch *d {
		case prefs.DigestInstant, prefs.DigestDaily, prefs.DigestWeekly:
		default:
			return &ValidationError{Field: "digest_frequency", Message: fmt.Sprintf("unknown frequency %q", *d)}
		}
	}
	return nil
}
