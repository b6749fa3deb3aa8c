package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/internal/calendar"
	"roombook/internal/model"
)

func TestDurationOptions(t *testing.T) {
	r := testResolver(at(15, 8, 0))
	existing := []model.Booking{booking("a", at(15, 10, 0), at(15, 11, 0))}
	view := r.BuildWeek(calendar.NewWeek(at(15, 0, 0)), existing, nil)
	thu := 3

	assert.Equal(t, []int{30, 60, 90, 120}, r.DurationOptions(view, thu, slotIndex(8, 0)))
	assert.Nil(t, r.DurationOptions(view, thu, slotIndex(10, 0)), "occupied start")

	// Friday is empty: capped at five hours.
	opts := r.DurationOptions(view, 4, slotIndex(8, 0))
	assert.Len(t, opts, 10)
	assert.Equal(t, 300, opts[len(opts)-1])

	// Cut at the end of the window.
	assert.Equal(t, []int{30, 60}, r.DurationOptions(view, 4, slotIndex(19, 0)))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30 minutes", FormatDuration(30))
	assert.Equal(t, "1 hour", FormatDuration(60))
	assert.Equal(t, "1 hour 30 minutes", FormatDuration(90))
	assert.Equal(t, "2 hours", FormatDuration(120))
	assert.Equal(t, "4 hours 30 minutes", FormatDuration(270))
	assert.Equal(t, "1 hour 30 minutes", DurationLabel(90*time.Minute))
}
