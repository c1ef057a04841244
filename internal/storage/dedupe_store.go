package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned by DedupeStore.Reserve when an unexpired record
// already exists for the fingerprint. It signals a normal suppression
// outcome, not a failure.
var ErrDuplicate = errors.New("duplicate fingerprint within window")

// DedupeStore persists short-lived dedupe fingerprints. Reserve is the
// single point in the engine requiring an atomicity guarantee under
// concurrency: two near-simultaneous events with the same fingerprint must
// not both succeed.
type DedupeStore interface {
	// Reserve records the fingerprint until expiresAt. Returns ErrDuplicate
	// when an unexpired record for the same fingerprint already exists.
	Reserve(ctx context.Context, fingerprint string, expiresAt time.Time) error
	// PurgeExpired removes expired fingerprints, returning the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
