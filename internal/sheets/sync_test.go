package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roombook/internal/calendar"
	"roombook/internal/model"
	"roombook/internal/slots"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListRooms(ctx context.Context) ([]model.Room, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *mockSource) ListBookings(ctx context.Context) ([]model.Booking, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWeek(ctx context.Context, room model.Room, view *slots.WeekView) error {
	return m.Called(room, view).Error(0)
}

func TestSyncCurrentWeek(t *testing.T) {
	now := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)
	grid := calendar.Grid{StartHour: 8, EndHour: 20, SlotWidth: 30, Location: time.UTC}
	resolver := slots.NewResolver(grid, func() time.Time { return now }, nil)

	rooms := []model.Room{{ID: "r1", Title: "Aquarium"}, {ID: "r2", Title: "Library"}}
	src := new(mockSource)
	src.On("ListRooms").Return(rooms, nil)
	src.On("ListBookings").Return([]model.Booking{{
		ID: "b1", RoomID: "r2", Title: "Retro",
		Start: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}}, nil)

	pub := new(mockPublisher)
	pub.On("PublishWeek", rooms[0], mock.MatchedBy(func(v *slots.WeekView) bool {
		return v.Week.Key() == "2026-01-12" && v.Rows[2][3].State == slots.CellFutureEmpty
	})).Return(nil)
	pub.On("PublishWeek", rooms[1], mock.MatchedBy(func(v *slots.WeekView) bool {
		return v.Rows[2][3].State == slots.CellOccupiedStart
	})).Return(errors.New("quota exceeded"))

	err := SyncCurrentWeek(context.Background(), src, pub, resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Library: quota exceeded")
	pub.AssertNumberOfCalls(t, "PublishWeek", 2)
}

func TestSyncCurrentWeek_SourceFailure(t *testing.T) {
	src := new(mockSource)
	src.On("ListRooms").Return(nil, errors.New("offline"))

	resolver := slots.NewResolver(calendar.DefaultGrid(), nil, nil)
	err := SyncCurrentWeek(context.Background(), src, new(mockPublisher), resolver)
	assert.ErrorContains(t, err, "list rooms")
}
