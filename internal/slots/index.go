// Package slots places bookings on the week grid and decides which cells
// can still be booked.
package slots

import (
	"time"

	"roombook/internal/calendar"
	"roombook/internal/model"
)

// StartTolerance absorbs sub-second rounding from serialized timestamps.
const StartTolerance = time.Second

// SlotSpan returns how many slots b covers: ceil(minutes / width), at least 1.
func SlotSpan(b *model.Booking, slotWidthMinutes int) int {
	if slotWidthMinutes <= 0 {
		slotWidthMinutes = calendar.DefaultSlotWidth
	}
	width := time.Duration(slotWidthMinutes) * time.Minute
	d := b.Duration()
	if d <= 0 {
		return 1
	}
	span := int(d / width)
	if d%width != 0 {
		span++
	}
	if span < 1 {
		span = 1
	}
	return span
}

// FindStartingBooking returns the first booking starting at the slot on date,
// and how many bookings claimed that start.
func FindStartingBooking(date time.Time, slot calendar.TimeSlot, bookings []model.Booking) (*model.Booking, int) {
	start := calendar.SlotStart(date, slot)

	var found *model.Booking
	matches := 0
	for i := range bookings {
		diff := bookings[i].Start.Sub(start)
		if diff < 0 {
			diff = -diff
		}
		if diff >= StartTolerance {
			continue
		}
		matches++
		if found == nil {
			found = &bookings[i]
		}
	}
	return found, matches
}

// IsSlotOccupied reports whether any booking strictly overlaps the slot.
func IsSlotOccupied(date time.Time, slot calendar.TimeSlot, slotWidthMinutes int, bookings []model.Booking) bool {
	return OccupyingBooking(date, slot, slotWidthMinutes, bookings) != nil
}

// OccupyingBooking returns the first booking overlapping the slot, if any.
func OccupyingBooking(date time.Time, slot calendar.TimeSlot, slotWidthMinutes int, bookings []model.Booking) *model.Booking {
	start := calendar.SlotStart(date, slot)
	end := calendar.SlotEnd(date, slot, slotWidthMinutes)
	for i := range bookings {
		if bookings[i].Overlaps(start, end) {
			return &bookings[i]
		}
	}
	return nil
}

// FilterBookings keeps the bookings of roomID that touch week.
func FilterBookings(bookings []model.Booking, roomID string, week calendar.Week) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.RoomID != roomID {
			continue
		}
		if !week.Overlaps(b.Start, b.End) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Conflicts returns every booking intersecting [start, end).
func Conflicts(start, end time.Time, bookings []model.Booking) []model.Booking {
	var out []model.Booking
	for _, b := range bookings {
		if b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out
}
