package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/internal/calendar"
	"roombook/internal/model"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

func booking(id string, start, end time.Time) model.Booking {
	return model.Booking{ID: id, RoomID: "room-1", Title: id, Start: start, End: end}
}

func TestSlotSpan(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		width int
		want  int
	}{
		{"90 minutes", at(15, 9, 0), at(15, 10, 30), 30, 3},
		{"exact slot", at(15, 9, 0), at(15, 9, 30), 30, 1},
		{"partial slot rounds up", at(15, 9, 0), at(15, 9, 40), 30, 2},
		{"shorter than slot", at(15, 9, 0), at(15, 9, 5), 30, 1},
		{"zero length still spans one", at(15, 9, 0), at(15, 9, 0), 30, 1},
		{"hour slots", at(15, 9, 0), at(15, 11, 30), 60, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := booking("b", tt.start, tt.end)
			got := SlotSpan(&b, tt.width)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
			assert.GreaterOrEqual(t, time.Duration(got*tt.width)*time.Minute, b.Duration())
		})
	}
}

func TestFindStartingBooking(t *testing.T) {
	day := at(15, 0, 0)
	nine := calendar.TimeSlot{Hour: 9, Minute: 0}
	bookings := []model.Booking{
		booking("a", at(15, 9, 0).Add(400*time.Millisecond), at(15, 10, 30)),
		booking("b", at(15, 11, 0), at(15, 12, 0)),
	}

	got, n := FindStartingBooking(day, nine, bookings)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 1, n)

	got, _ = FindStartingBooking(day, calendar.TimeSlot{Hour: 9, Minute: 30}, bookings)
	assert.Nil(t, got, "continuation slot is not a start")

	late := []model.Booking{booking("c", at(15, 9, 0).Add(time.Second), at(15, 10, 0))}
	got, _ = FindStartingBooking(day, nine, late)
	assert.Nil(t, got, "one second off is outside the tolerance")
}

func TestFindStartingBooking_DuplicatePicksFirst(t *testing.T) {
	bookings := []model.Booking{
		booking("first", at(15, 9, 0), at(15, 10, 0)),
		booking("second", at(15, 9, 0), at(15, 9, 30)),
	}
	got, n := FindStartingBooking(at(15, 0, 0), calendar.TimeSlot{Hour: 9}, bookings)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.ID)
	assert.Equal(t, 2, n)
}

func TestIsSlotOccupied(t *testing.T) {
	day := at(15, 0, 0)
	bookings := []model.Booking{booking("a", at(15, 13, 30), at(15, 14, 30))}

	assert.True(t, IsSlotOccupied(day, calendar.TimeSlot{Hour: 13, Minute: 30}, 30, bookings))
	assert.True(t, IsSlotOccupied(day, calendar.TimeSlot{Hour: 14, Minute: 0}, 30, bookings))
	assert.False(t, IsSlotOccupied(day, calendar.TimeSlot{Hour: 13, Minute: 0}, 30, bookings), "ends where booking starts")
	assert.False(t, IsSlotOccupied(day, calendar.TimeSlot{Hour: 14, Minute: 30}, 30, bookings), "starts where booking ends")
	assert.False(t, IsSlotOccupied(at(16, 0, 0), calendar.TimeSlot{Hour: 14, Minute: 0}, 30, bookings))
}

func TestIsSlotOccupied_DisjointBookingsNeverShareSlot(t *testing.T) {
	a := booking("a", at(15, 9, 0), at(15, 10, 0))
	b := booking("b", at(15, 10, 0), at(15, 11, 30))
	day := at(15, 0, 0)

	for _, slot := range calendar.TimeSlots(8, 20, 30) {
		inA := IsSlotOccupied(day, slot, 30, []model.Booking{a})
		inB := IsSlotOccupied(day, slot, 30, []model.Booking{b})
		assert.False(t, inA && inB, "slot %s", slot.Label)
	}
}

func TestFilterBookings(t *testing.T) {
	week := calendar.NewWeek(at(14, 0, 0))
	other := booking("other", at(15, 9, 0), at(15, 10, 0))
	other.RoomID = "room-2"
	bookings := []model.Booking{
		booking("in", at(15, 9, 0), at(15, 10, 0)),
		other,
		booking("next-week", at(20, 9, 0), at(20, 10, 0)),
	}

	got := FilterBookings(bookings, "room-1", week)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestConflicts(t *testing.T) {
	bookings := []model.Booking{
		booking("a", at(15, 9, 0), at(15, 10, 0)),
		booking("b", at(15, 13, 30), at(15, 14, 30)),
	}
	got := Conflicts(at(15, 14, 0), at(15, 15, 0), bookings)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Empty(t, Conflicts(at(15, 10, 0), at(15, 13, 30), bookings))
}
