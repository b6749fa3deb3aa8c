package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Rooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rooms := []model.Room{
		{ID: "http://x/room-b", Title: "Upstairs Room 2", Capacity: 2},
		{ID: "http://x/room-a", Title: "Downstairs Room 1", Capacity: 4},
	}
	require.NoError(t, s.SaveRooms(ctx, rooms))

	got, err := s.LoadRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, rooms, got, "order is preserved")

	require.NoError(t, s.SaveRooms(ctx, rooms[:1]))
	got, err = s.LoadRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_Week(t *testing.T) {
	s := newTestStore(t)
	saved := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return saved }
	ctx := context.Background()

	_, _, ok, err := s.LoadWeek(ctx, "room-1", "2026-01-12")
	require.NoError(t, err)
	assert.False(t, ok)

	bookings := []model.Booking{
		{ID: "b2", Title: "Review", Start: time.Date(2026, 1, 16, 13, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 16, 14, 30, 0, 0, time.UTC), Creator: "bob"},
		{ID: "b1", Title: "Standup", Start: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), Purpose: "daily", Creator: "alice"},
	}
	require.NoError(t, s.SaveWeek(ctx, "room-1", "2026-01-12", bookings))

	got, at, ok, err := s.LoadWeek(ctx, "room-1", "2026-01-12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, saved.Equal(at))
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID, "sorted by start")
	assert.Equal(t, "room-1", got[0].RoomID)
	assert.Equal(t, "daily", got[0].Purpose)
	assert.True(t, bookings[1].Start.Equal(got[0].Start))

	// An empty week is still a snapshot.
	require.NoError(t, s.SaveWeek(ctx, "room-1", "2026-01-12", nil))
	got, _, ok, err = s.LoadWeek(ctx, "room-1", "2026-01-12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := []model.Booking{{ID: "b1", Start: time.Now(), End: time.Now().Add(time.Hour)}}

	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.SaveWeek(ctx, "room-1", "2025-12-29", b))
	s.now = func() time.Time { return time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.SaveWeek(ctx, "room-1", "2026-01-19", b))

	n, err := s.Prune(ctx, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, ok, err := s.LoadWeek(ctx, "room-1", "2025-12-29")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, ok, err = s.LoadWeek(ctx, "room-1", "2026-01-19")
	require.NoError(t, err)
	assert.True(t, ok)
}
