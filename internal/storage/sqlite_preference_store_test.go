package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

func TestSQLitePreferenceStore(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLitePreferenceStore(db)
	ctx := context.Background()

	t.Run("absent profile returns nil", func(t *testing.T) {
		p, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("round trip", func(t *testing.T) {
		p := prefs.NewProfile("u1")
		p.Channels.SMS = false
		p.Digest = prefs.DigestDaily
		p.Quiet = prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeImportantOnly}
		p.Routes[event.TypeComment] = prefs.Route{
			Channels: []prefs.Channel{prefs.ChannelInApp, prefs.ChannelChat},
			Priority: prefs.PriorityHigh,
		}
		require.NoError(t, store.Put(ctx, p))

		got, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.UserID)
		assert.False(t, got.Channels.SMS)
		assert.True(t, got.Channels.Email)
		assert.Equal(t, prefs.DigestDaily, got.Digest)
		assert.Equal(t, prefs.QuietModeImportantOnly, got.Quiet.Mode)
		require.Contains(t, got.Routes, event.TypeComment)
		assert.Equal(t, prefs.PriorityHigh, got.Routes[event.TypeComment].Priority)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("put replaces the existing row", func(t *testing.T) {
		p := prefs.NewProfile("u1")
		p.Digest = prefs.DigestWeekly
		require.NoError(t, store.Put(ctx, p))

		got, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, prefs.DigestWeekly, got.Digest)
		assert.True(t, got.Channels.SMS)
	})

	t.Run("missing user id is rejected", func(t *testing.T) {
		assert.Error(t, store.Put(ctx, &prefs.Profile{}))
	})
}

func TestSQLiteContactStore(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteContactStore(db)
	ctx := context.Background()

	t.Run("absent contact returns nil", func(t *testing.T) {
		c, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("round trip and upsert", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &storage.Contact{
			UserID: "u1", Email: "u1@example.org", Phone: "+4870000001", TelegramChatID: 12345,
		}))

		c, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "u1@example.org", c.Email)
		assert.EqualValues(t, 12345, c.TelegramChatID)

		require.NoError(t, store.Put(ctx, &storage.Contact{UserID: "u1", Email: "new@example.org"}))
		c, err = store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "new@example.org", c.Email)
		assert.Empty(t, c.Phone)
	})
}
