package storage_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettera-hq/notifier/internal/storage"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteNotificationStore(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteNotificationStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seed := []storage.Notification{
		{ID: "n1", UserID: "u1", Type: "COMMENT", Title: "New comment", Priority: "normal", ResourceID: "L-100", CreatedAt: base},
		{ID: "n2", UserID: "u1", Type: "ASSIGNMENT", Title: "Assigned to you", Priority: "high", ResourceID: "L-101", CreatedAt: base.Add(time.Minute)},
		{ID: "n3", UserID: "u2", Type: "COMMENT", Title: "Other user", Priority: "normal", ResourceID: "L-100", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		require.NoError(t, store.Create(ctx, &seed[i]))
	}

	t.Run("list newest first scoped to user", func(t *testing.T) {
		list, err := store.List(ctx, "u1", storage.NotificationFilter{}, storage.Page{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "n2", list[0].ID)
		assert.Equal(t, "n1", list[1].ID)
	})

	t.Run("filter by type and resource", func(t *testing.T) {
		list, err := store.List(ctx, "u1", storage.NotificationFilter{Type: "COMMENT"}, storage.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "n1", list[0].ID)

		list, err = store.List(ctx, "u1", storage.NotificationFilter{ResourceID: "L-101"}, storage.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "n2", list[0].ID)
	})

	t.Run("mark read and unread filter", func(t *testing.T) {
		require.NoError(t, store.MarkRead(ctx, "u1", []string{"n1"}))

		unread := false
		list, err := store.List(ctx, "u1", storage.NotificationFilter{Read: &unread}, storage.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "n2", list[0].ID)

		read := true
		list, err = store.List(ctx, "u1", storage.NotificationFilter{Read: &read}, storage.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "n1", list[0].ID)
		require.NotNil(t, list[0].ReadAt)
	})

	t.Run("mark read ignores other users' rows", func(t *testing.T) {
		require.NoError(t, store.MarkRead(ctx, "u1", []string{"n3"}))
		count, err := store.UnreadCount(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("unread count and mark all read", func(t *testing.T) {
		count, err := store.UnreadCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, store.MarkAllRead(ctx, "u1"))
		count, err = store.UnreadCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("delete scoped to user", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "u1", []string{"n1", "n3"}))
		list, err := store.List(ctx, "u1", storage.NotificationFilter{}, storage.Page{})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		// n3 belongs to u2 and must survive.
		list, err = store.List(ctx, "u2", storage.NotificationFilter{}, storage.Page{})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("delete all", func(t *testing.T) {
		require.NoError(t, store.DeleteAll(ctx, "u2"))
		list, err := store.List(ctx, "u2", storage.NotificationFilter{}, storage.Page{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestSQLiteNotificationStorePaging(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteNotificationStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &storage.Notification{
			ID:        fmt.Sprintf("n%d", i),
			UserID:    "u1",
			Type:      "COMMENT",
			Priority:  "normal",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := store.List(ctx, "u1", storage.NotificationFilter{}, storage.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n4", list[0].ID)

	list, err = store.List(ctx, "u1", storage.NotificationFilter{}, storage.Page{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n0", list[0].ID)
}

func TestSQLiteNotificationStorePurge(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSQLiteNotificationStore(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &storage.Notification{
		ID: "old", UserID: "u1", Type: "COMMENT", Priority: "low", CreatedAt: now.Add(-100 * 24 * time.Hour),
	}))
	require.NoError(t, store.Create(ctx, &storage.Notification{
		ID: "new", UserID: "u1", Type: "COMMENT", Priority: "low", CreatedAt: now,
	}))

	purged, err := store.PurgeOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	list, err := store.List(ctx, "u1", storage.NotificationFilter{}, storage.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)
}
