package calendar

import (
	"fmt"
	"time"
)

// Grid holds the window configuration used to lay out a week.
type Grid struct {
	StartHour int
	EndHour   int
	SlotWidth int // minutes
	Location  *time.Location
}

// DefaultGrid is 08:00-20:00 in 30 minute slots, local time.
func DefaultGrid() Grid {
	return Grid{
		StartHour: DefaultStartHour,
		EndHour:   DefaultEndHour,
		SlotWidth: DefaultSlotWidth,
		Location:  time.Local,
	}
}

// Validate rejects windows that cannot produce a slot.
func (g Grid) Validate() error {
	if g.StartHour < 0 || g.EndHour > 24 {
		return fmt.Errorf("grid hours must be within 0..24, got %d..%d", g.StartHour, g.EndHour)
	}
	if g.EndHour <= g.StartHour {
		return fmt.Errorf("grid end hour %d must be after start hour %d", g.EndHour, g.StartHour)
	}
	if g.SlotWidth <= 0 || (g.EndHour-g.StartHour)*60 < g.SlotWidth {
		return fmt.Errorf("invalid slot width %d", g.SlotWidth)
	}
	return nil
}

// Slots returns the grid's time slots.
func (g Grid) Slots() []TimeSlot {
	return TimeSlots(g.StartHour, g.EndHour, g.SlotWidth)
}

// SlotDuration returns the slot width as a duration.
func (g Grid) SlotDuration() time.Duration {
	return time.Duration(g.SlotWidth) * time.Minute
}

// Week returns the week containing ref, evaluated in the grid location.
func (g Grid) Week(ref time.Time) Week {
	return NewWeek(ref.In(g.loc()))
}

// OnGrid reports whether t is aligned to a slot boundary in the grid location.
func (g Grid) OnGrid(t time.Time) bool {
	t = t.In(g.loc())
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	minutes := t.Hour()*60 + t.Minute() - g.StartHour*60
	return minutes >= 0 && minutes%g.SlotWidth == 0
}

// InWindow reports whether [start, end) lies inside one day's window.
func (g Grid) InWindow(start, end time.Time) bool {
	start, end = start.In(g.loc()), end.In(g.loc())
	day := StartOfDay(start)
	open := day.Add(time.Duration(g.StartHour) * time.Hour)
	closeAt := day.Add(time.Duration(g.EndHour) * time.Hour)
	return !start.Before(open) && !end.After(closeAt)
}

func (g Grid) loc() *time.Location {
	if g.Location == nil {
		return time.Local
	}
	return g.Location
}
