package slots

import (
	"fmt"
	"time"
)

// DurationOptions returns the durations in minutes that can be booked from
// the cell at (day, slot): multiples of the slot width up to
// MaxBookingDuration, cut at the first cell that is not free.
func (r *Resolver) DurationOptions(view *WeekView, day, slot int) []int {
	first, ok := view.Cell(day, slot)
	if !ok || !first.Bookable() {
		return nil
	}

	maxSlots := int(MaxBookingDuration / r.grid.SlotDuration())
	free := 0
	for s := slot; s < len(view.Rows) && free < maxSlots; s++ {
		cell := view.Rows[s][day]
		if !cell.Bookable() {
			break
		}
		if s > slot && !cell.Start.Equal(view.Rows[s-1][day].End) {
			break
		}
		free++
	}

	options := make([]int, 0, free)
	for i := 1; i <= free; i++ {
		options = append(options, i*r.grid.SlotWidth)
	}
	return options
}

// FormatDuration renders minutes as "30 minutes", "1 hour", "2 hours 30 minutes".
func FormatDuration(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%d minutes", mins)
	}

	unit := "hours"
	if hours == 1 {
		unit = "hour"
	}
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d minutes", hours, unit, mins)
}

// DurationLabel is FormatDuration for a time.Duration.
func DurationLabel(d time.Duration) string {
	return FormatDuration(int(d / time.Minute))
}
