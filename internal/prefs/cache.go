package prefs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// Source loads profiles from durable storage. A nil profile with a nil error
// means the user has never saved one.
type Source interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}

// Cache is an in-memory, per-user profile cache with TTL-based expiry and
// explicit invalidation on writes. It is safe for concurrent use.
//
// The dispatcher resolves a profile for every (event, recipient) pair, so
// reads dominate; writes go through the preference service, which calls
// Invalidate after persisting.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	src     Source
	ttl     time.Duration
	logger  *slog.Logger
}

type cacheEntry struct {
	profile   *Profile // nil is cached too: "no profile saved"
	expiresAt time.Time
}

// NewCache creates a Cache over src. A non-positive ttl uses the default.
func NewCache(src Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		src:     src,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the user's profile, loading through to the source on a miss or
// after expiry. Absence (nil, nil) is cached like any other result so a user
// without a profile doesn't hit storage on every event.
func (c *Cache) Get(ctx context.Context, userID string) (*Profile, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		return e.profile, nil
	}

	profile, err := c.src.Get(ctx, userID)
	if err != nil {
		// Serve stale data over failing the whole dispatch pipeline.
		if ok {
			c.logger.Warn("preference cache: refresh failed, serving stale entry",
				"user_id", userID, "error", err)
			return e.profile, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{profile: profile, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return profile, nil
}

// Invalidate drops the cached entry for userID so the next Get reloads it.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
