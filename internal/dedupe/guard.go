// Package dedupe implements duplicate suppression for notification delivery.
// A fingerprint identifies "the same notification"; the guard lets the first
// claim within a window through and suppresses the rest.
package dedupe

import (
	"context"
	"errors"
	"time"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/storage"
)

// WindowFunc returns the default suppression window for an event type.
type WindowFunc func(event.Type) time.Duration

// Guard decides whether a (fingerprint, window) pair is a fresh delivery or
// a duplicate to suppress. Atomicity lives in the store's conditional
// insert, not here: concurrent calls for the same fingerprint race on the
// unique constraint and exactly one wins.
type Guard struct {
	store     storage.DedupeStore
	windowFor WindowFunc
}

// NewGuard creates a Guard. windowFor supplies the per-type default used
// when an event carries no explicit window.
func NewGuard(store storage.DedupeStore, windowFor WindowFunc) *Guard {
	return &Guard{store: store, windowFor: windowFor}
}

// Window returns the effective suppression window for an event: its own
// override when set, else the per-type default.
func (g *Guard) Window(e event.Event) time.Duration {
	if e.DedupeWindow > 0 {
		return e.DedupeWindow
	}
	return g.windowFor(e.Type)
}

// ShouldDeliver reports whether the fingerprint is fresh within the window,
// recording it as a side effect of a true result. A zero window disables
// suppression for this delivery.
//
// A storage failure reports true alongside the error: an unavailable dedupe
// store must degrade to possible duplicates, never to lost notifications.
func (g *Guard) ShouldDeliver(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	err := g.store.Reserve(ctx, fingerprint, time.Now().Add(window))
	if errors.Is(err, storage.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return true, err
	}
	return true, nil
}
