package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettera-hq/notifier/internal/storage"
)

func TestSQLiteDedupeStoreReserve(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteDedupeStore(db)
	ctx := context.Background()

	t.Run("first reserve passes, second is a duplicate", func(t *testing.T) {
		expiry := time.Now().Add(time.Minute)
		require.NoError(t, store.Reserve(ctx, "fp-1", expiry))
		err := store.Reserve(ctx, "fp-1", expiry)
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("expired claim is reclaimed", func(t *testing.T) {
		require.NoError(t, store.Reserve(ctx, "fp-2", time.Now().Add(-time.Second)))
		assert.NoError(t, store.Reserve(ctx, "fp-2", time.Now().Add(time.Minute)))
	})

	t.Run("distinct fingerprints are independent", func(t *testing.T) {
		expiry := time.Now().Add(time.Minute)
		require.NoError(t, store.Reserve(ctx, "fp-3", expiry))
		assert.NoError(t, store.Reserve(ctx, "fp-4", expiry))
	})
}

func TestSQLiteDedupeStoreConcurrentReserve(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteDedupeStore(db)
	ctx := context.Background()

	const attempts = 16
	expiry := time.Now().Add(time.Minute)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Reserve(ctx, "fp-race", expiry)
		}()
	}
	wg.Wait()
	close(results)

	var passed, duplicates int
	for err := range results {
		switch {
		case err == nil:
			passed++
		default:
			require.ErrorIs(t, err, storage.ErrDuplicate)
			duplicates++
		}
	}
	// Exactly one goroutine may claim the fingerprint.
	assert.Equal(t, 1, passed)
	assert.Equal(t, attempts-1, duplicates)
}

func TestSQLiteDedupeStorePurgeExpired(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteDedupeStore(db)
	ctx := context.Background()

	require.NoError(t, store.Reserve(ctx, "stale", time.Now().Add(-time.Hour)))
	require.NoError(t, store.Reserve(ctx, "live", time.Now().Add(time.Hour)))

	purged, err := store.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	// The live claim still blocks duplicates.
	assert.ErrorIs(t, store.Reserve(ctx, "live", time.Now().Add(time.Hour)), storage.ErrDuplicate)
}
