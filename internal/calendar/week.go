// Package calendar computes the weekly booking grid: the Monday-first days
// of a week and the fixed-width time slots of the daily window.
package calendar

import (
	"fmt"
	"time"
)

const (
	DefaultStartHour = 8
	DefaultEndHour   = 20
	DefaultSlotWidth = 30 // minutes
)

// TimeSlot is one grid row within the daily window.
type TimeSlot struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Label  string `json:"label"` // "9:30"
}

// Week is a Monday-first seven day window, [Start, End).
type Week struct {
	Start time.Time
	End   time.Time
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekDates returns the seven days of ref's week, Monday first.
// Sunday belongs to the week that started the previous Monday.
func WeekDates(ref time.Time) [7]time.Time {
	offset := int(ref.Weekday()) - 1
	if ref.Weekday() == time.Sunday {
		offset = 6
	}
	monday := StartOfDay(ref).AddDate(0, 0, -offset)

	var days [7]time.Time
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// NewWeek returns the week containing ref.
func NewWeek(ref time.Time) Week {
	days := WeekDates(ref)
	return Week{Start: days[0], End: days[0].AddDate(0, 0, 7)}
}

// Days returns the dates of the week.
func (w Week) Days() [7]time.Time {
	return WeekDates(w.Start)
}

// Prev returns the preceding week.
func (w Week) Prev() Week {
	return NewWeek(w.Start.AddDate(0, 0, -7))
}

// Next returns the following week.
func (w Week) Next() Week {
	return NewWeek(w.Start.AddDate(0, 0, 7))
}

// Contains reports whether t falls within the week.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether [start, end] touches the week. Touching the
// boundary counts, so a booking ending at Monday 00:00 is still listed.
func (w Week) Overlaps(start, end time.Time) bool {
	return !start.After(w.End) && !end.Before(w.Start)
}

// Key identifies the week as YYYY-MM-DD of its Monday.
func (w Week) Key() string {
	return w.Start.Format("2006-01-02")
}

func (w Week) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.AddDate(0, 0, -1).Format("2006-01-02"))
}

// TimeSlots returns the slots of the window [startHour, endHour) in order.
func TimeSlots(startHour, endHour, slotWidthMinutes int) []TimeSlot {
	if slotWidthMinutes <= 0 {
		slotWidthMinutes = DefaultSlotWidth
	}
	if endHour <= startHour {
		return nil
	}

	var out []TimeSlot
	for m := startHour * 60; m+slotWidthMinutes <= endHour*60; m += slotWidthMinutes {
		h, min := m/60, m%60
		out = append(out, TimeSlot{
			Hour:   h,
			Minute: min,
			Label:  fmt.Sprintf("%d:%02d", h, min),
		})
	}
	return out
}

// SlotStart returns the instant the slot begins on date, in date's location.
func SlotStart(date time.Time, slot TimeSlot) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), slot.Hour, slot.Minute, 0, 0, date.Location())
}

// SlotEnd returns the instant the slot ends on date.
func SlotEnd(date time.Time, slot TimeSlot, slotWidthMinutes int) time.Time {
	return SlotStart(date, slot).Add(time.Duration(slotWidthMinutes) * time.Minute)
}
