package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshitk99/excali-new/internal/models"
	"github.com/harshitk99/excali-new/internal/testhelpers"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testhelpers.SetupTestDB(t))
}

func ptr(f float64) *float64 { return &f }

func TestStore_CreateChat(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	chat, err := store.CreateChat(ctx, 42, "alice", "Alice", "hi")
	require.NoError(t, err)
	assert.NotZero(t, chat.ID)
	assert.False(t, chat.CreatedAt.IsZero())

	_, err = store.CreateChat(ctx, 42, "bob", "Bob", "hello")
	require.NoError(t, err)
	_, err = store.CreateChat(ctx, 7, "bob", "Bob", "elsewhere")
	require.NoError(t, err)

	recent, err := store.RecentChats(ctx, 42, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "hello", recent[0].Message, "newest first")
	assert.Equal(t, "hi", recent[1].Message)

	limited, err := store.RecentChats(ctx, 42, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_CreateDrawingPersistsGeometry(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	drawing, err := store.CreateDrawing(ctx, &models.Drawing{
		RoomID:      42,
		UserID:      "alice",
		ShapeType:   models.ShapeRectangle,
		X:           ptr(0),
		Y:           ptr(0),
		Width:       ptr(10),
		Height:      ptr(10),
		Color:       "#000000",
		StrokeWidth: 2,
	})
	require.NoError(t, err)
	assert.NotZero(t, drawing.ID)
	assert.Equal(t, []float64{}, drawing.Points)

	line, err := store.CreateDrawing(ctx, &models.Drawing{
		RoomID:      42,
		UserID:      "alice",
		ShapeType:   models.ShapeLine,
		Points:      []float64{1, 2, 3, 4},
		Color:       "#ff0000",
		StrokeWidth: 3,
	})
	require.NoError(t, err)

	all, err := store.ListDrawings(ctx, 42)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, drawing.ID, all[0].ID)
	require.NotNil(t, all[0].Width)
	assert.Equal(t, 10.0, *all[0].Width)
	assert.Nil(t, all[0].Radius)
	assert.Equal(t, line.ID, all[1].ID)
	assert.Equal(t, []float64{1, 2, 3, 4}, all[1].Points)
}

func TestStore_FindDrawingByIDAndOwner(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	drawing, err := store.CreateDrawing(ctx, &models.Drawing{RoomID: 1, UserID: "carol", ShapeType: models.ShapeLine, Color: "#000000", StrokeWidth: 2})
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		got, err := store.FindDrawingByIDAndOwner(ctx, drawing.ID, "carol")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, drawing.ID, got.ID)
	})

	t.Run("someone else", func(t *testing.T) {
		got, err := store.FindDrawingByIDAndOwner(ctx, drawing.ID, "alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing", func(t *testing.T) {
		got, err := store.FindDrawingByIDAndOwner(ctx, 9999, "carol")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("database error", func(t *testing.T) {
		testhelpers.DropTable(t, store.Drawings.DB, &models.Drawing{})
		_, err := store.FindDrawingByIDAndOwner(ctx, drawing.ID, "carol")
		assert.Error(t, err)
	})
}

func TestStore_DeleteDrawings(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	keep, err := store.CreateDrawing(ctx, &models.Drawing{RoomID: 2, UserID: "a", ShapeType: models.ShapeLine, Color: "#000000", StrokeWidth: 2})
	require.NoError(t, err)
	gone, err := store.CreateDrawing(ctx, &models.Drawing{RoomID: 1, UserID: "a", ShapeType: models.ShapeLine, Color: "#000000", StrokeWidth: 2})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := store.CreateDrawing(ctx, &models.Drawing{RoomID: 1, UserID: "b", ShapeType: models.ShapeCircle, Radius: ptr(4), Color: "#000000", StrokeWidth: 2})
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteDrawing(ctx, gone.ID))
	got, err := store.FindDrawingByIDAndOwner(ctx, gone.ID, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := store.DeleteAllDrawingsInRoom(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	left, err := store.ListDrawings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)
}

func TestStore_FindRoomAdmin(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	room := testhelpers.SeedRoom(t, store.Rooms.DB, "design-review", "admin-1")

	admin, found, err := store.FindRoomAdmin(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "admin-1", admin)

	admin, found, err = store.FindRoomAdmin(ctx, room.ID+100)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, admin)

	testhelpers.DropTable(t, store.Rooms.DB, &models.Room{})
	_, _, err = store.FindRoomAdmin(ctx, room.ID)
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(DriverSQLite, "file:open_sqlite_migrates?mode=memory&cache=shared")
	require.NoError(t, err)
	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestOpenSQLiteSerializesConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	dsns := map[string]string{
		"default":      strings.Replace(DefaultSQLiteDSN, "whiteboard.db", filepath.Join(dir, "default.db"), 1),
		"shared cache": "file:" + filepath.Join(dir, "shared.db") + "?cache=shared",
	}
	for name, dsn := range dsns {
		t.Run(name, func(t *testing.T) {
			db, err := Open(DriverSQLite, dsn)
			require.NoError(t, err)
			t.Cleanup(func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			})
			store := NewStore(db)

			const writers, perWriter = 50, 10
			var failed atomic.Int32
			var firstErr atomic.Value
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if _, err := store.CreateChat(context.Background(), 42, "user", "User", "hi"); err != nil {
							failed.Add(1)
							firstErr.CompareAndSwap(nil, err.Error())
						}
					}
				}()
			}
			wg.Wait()

			require.Zero(t, failed.Load(), "first error: %v", firstErr.Load())
			var count int64
			require.NoError(t, db.Model(&models.Chat{}).Where("room_id = ?", 42).Count(&count).Error)
			assert.EqualValues(t, writers*perWriter, count)
		})
	}
}
