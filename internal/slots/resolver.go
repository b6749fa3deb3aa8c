package slots

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roombook/internal/calendar"
	"roombook/internal/model"
)

// MaxBookingDuration is the longest booking the backend accepts.
const MaxBookingDuration = 5 * time.Hour

var (
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrOffGrid         = errors.New("booking must start and end on a slot boundary")
	ErrOutsideWindow   = errors.New("booking is outside the bookable hours")
	ErrTooLong         = errors.New("booking exceeds the maximum duration")
	ErrInPast          = errors.New("booking starts in the past")
)

// CellState classifies a grid cell at render time.
type CellState string

const (
	CellNoBooking            CellState = "no-booking"
	CellOccupiedStart        CellState = "occupied-start"
	CellOccupiedContinuation CellState = "occupied-continuation"
	CellPastEmpty            CellState = "past-empty"
	CellFutureEmpty          CellState = "future-empty"
)

// Cell is one (slot, day) position of the week view.
type Cell struct {
	State   CellState      `json:"state"`
	Start   time.Time      `json:"start"`
	End     time.Time      `json:"end"`
	Booking *model.Booking `json:"booking,omitempty"` // set on occupied-start
	Span    int            `json:"span,omitempty"`
	Own     bool           `json:"own,omitempty"`
}

// Bookable reports whether a new booking may start in the cell.
func (c Cell) Bookable() bool {
	return c.State == CellFutureEmpty
}

// WeekView is the rendered week: Rows[slot][day].
type WeekView struct {
	Week  calendar.Week       `json:"-"`
	Days  [7]time.Time        `json:"days"`
	Slots []calendar.TimeSlot `json:"slots"`
	Rows  [][]Cell            `json:"rows"`
}

// Cell returns the cell for day index and slot index, or false when out of range.
func (v *WeekView) Cell(day, slot int) (Cell, bool) {
	if slot < 0 || slot >= len(v.Rows) || day < 0 || day >= len(v.Days) {
		return Cell{}, false
	}
	return v.Rows[slot][day], true
}

// Resolver decides availability of grid cells against a booking snapshot.
type Resolver struct {
	grid   calendar.Grid
	now    func() time.Time
	logger zerolog.Logger
}

// NewResolver creates a resolver for grid. A nil clock means time.Now.
func NewResolver(grid calendar.Grid, now func() time.Time, logger *zerolog.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "slots").Logger()
	}
	return &Resolver{grid: grid, now: now, logger: l}
}

// Grid returns the resolver's grid.
func (r *Resolver) Grid() calendar.Grid {
	return r.grid
}

// Now returns the resolver's current time.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Available reports whether [start, end) is free of bookings and not in the past.
func (r *Resolver) Available(start, end time.Time, bookings []model.Booking) bool {
	if start.Before(r.now()) {
		return false
	}
	return len(Conflicts(start, end, bookings)) == 0
}

// EmptyWeek lays out week with every cell in the no-booking state.
func (r *Resolver) EmptyWeek(week calendar.Week) *WeekView {
	view := r.layout(week)
	for s := range view.Rows {
		for d := range view.Rows[s] {
			view.Rows[s][d].State = CellNoBooking
		}
	}
	return view
}

// BuildWeek classifies every cell of week against bookings. user may be nil.
func (r *Resolver) BuildWeek(week calendar.Week, bookings []model.Booking, user *model.User) *WeekView {
	view := r.layout(week)
	now := r.now()

	for s, slot := range view.Slots {
		for d, day := range view.Days {
			cell := &view.Rows[s][d]

			if b, n := FindStartingBooking(day, slot, bookings); b != nil {
				if n > 1 {
					r.logger.Warn().
						Str("slot", cell.Start.Format(time.RFC3339)).
						Int("bookings", n).
						Str("picked", b.ID).
						Msg("multiple bookings start in the same slot")
				}
				cell.State = CellOccupiedStart
				cell.Booking = b
				cell.Span = SlotSpan(b, r.grid.SlotWidth)
				cell.Own = b.IsOwnedBy(user)
				continue
			}

			if IsSlotOccupied(day, slot, r.grid.SlotWidth, bookings) {
				cell.State = CellOccupiedContinuation
				continue
			}

			if cell.Start.Before(now) {
				cell.State = CellPastEmpty
			} else {
				cell.State = CellFutureEmpty
			}
		}
	}
	return view
}

func (r *Resolver) layout(week calendar.Week) *WeekView {
	view := &WeekView{
		Week:  week,
		Days:  week.Days(),
		Slots: r.grid.Slots(),
	}
	view.Rows = make([][]Cell, len(view.Slots))
	for s, slot := range view.Slots {
		row := make([]Cell, len(view.Days))
		for d, day := range view.Days {
			row[d] = Cell{
				Start: calendar.SlotStart(day, slot),
				End:   calendar.SlotEnd(day, slot, r.grid.SlotWidth),
			}
		}
		view.Rows[s] = row
	}
	return view
}

// Validate checks a candidate booking interval before it is submitted.
// Only the local snapshot is consulted; the backend has the final word.
func (r *Resolver) Validate(start, end time.Time, bookings []model.Booking) error {
	candidate := model.Booking{Start: start, End: end}
	if err := candidate.Validate(); err != nil {
		return err
	}
	if !r.grid.OnGrid(start) || !r.grid.OnGrid(end) {
		return ErrOffGrid
	}
	if !r.grid.InWindow(start, end) {
		return ErrOutsideWindow
	}
	if candidate.Duration() > MaxBookingDuration {
		return ErrTooLong
	}
	if start.Before(r.now()) {
		return ErrInPast
	}
	if conflicts := Conflicts(start, end, bookings); len(conflicts) > 0 {
		c := conflicts[0]
		return fmt.Errorf("%w: overlaps %q (%s-%s)", ErrSlotUnavailable, c.Title,
			c.Start.In(start.Location()).Format("15:04"), c.End.In(start.Location()).Format("15:04"))
	}
	return nil
}
