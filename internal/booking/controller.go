// Package booking holds the calendar controller: the single owner of the
// rooms, selected room, week and booking snapshot shown to one user.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roombook/internal/calendar"
	"roombook/internal/metrics"
	"roombook/internal/model"
	"roombook/internal/plone"
	"roombook/internal/slots"
)

var (
	ErrNoRoomSelected = errors.New("no room selected")
	ErrUnknownRoom    = errors.New("unknown room")
	ErrNotOwner       = fmt.Errorf("%w: you can only cancel your own bookings", plone.ErrPermission)
)

// State is a copy of what the controller currently shows.
type State struct {
	Rooms    []model.Room
	Room     *model.Room
	Week     calendar.Week
	Bookings []model.Booking

	Loaded     bool // Bookings reflect Room and Week
	Loading    bool
	Stale      bool // served from the snapshot store
	StaleSince time.Time
	Error      string
}

// Controller owns the calendar state for one user. All mutations of the
// data happen through the API; the controller only refreshes its copy.
type Controller struct {
	api      API
	store    SnapshotStore
	notifier Notifier
	resolver *slots.Resolver
	user     model.User
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	gen   uint64
}

// NewController creates a controller showing the current week. store may be nil.
func NewController(api API, store SnapshotStore, resolver *slots.Resolver, user model.User, logger *zerolog.Logger) *Controller {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "booking").Str("user", user.ID).Logger()
	}
	return &Controller{
		api:      api,
		store:    store,
		resolver: resolver,
		user:     user,
		logger:   l,
		state:    State{Week: resolver.Grid().Week(resolver.Now())},
	}
}

// UseNotifier sets where booking events are announced.
func (c *Controller) UseNotifier(n Notifier) {
	c.notifier = n
}

// User returns the identity the controller acts for.
func (c *Controller) User() model.User {
	return c.user
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyState()
}

func (c *Controller) copyState() State {
	st := c.state
	st.Rooms = append([]model.Room(nil), c.state.Rooms...)
	st.Bookings = append([]model.Booking(nil), c.state.Bookings...)
	if c.state.Room != nil {
		r := *c.state.Room
		st.Room = &r
	}
	return st
}

// View renders the current week. Until bookings are loaded every cell is in
// the no-booking state.
func (c *Controller) View() *slots.WeekView {
	st := c.State()
	if !st.Loaded {
		return c.resolver.EmptyWeek(st.Week)
	}
	return c.resolver.BuildWeek(st.Week, st.Bookings, &c.user)
}

// LoadRooms fetches the room list, selects the first room when none is
// selected yet, and reloads the week.
func (c *Controller) LoadRooms(ctx context.Context) error {
	rooms, err := c.api.ListRooms(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to load rooms")
		fallback := c.loadStoredRooms(ctx)

		c.mu.Lock()
		c.state.Error = "Failed to load rooms: " + plone.UserMessage(err)
		if len(fallback) > 0 && len(c.state.Rooms) == 0 {
			c.state.Rooms = fallback
			c.state.Stale = true
		}
		c.selectDefaultLocked()
		hasRoom := c.state.Room != nil
		c.mu.Unlock()

		if hasRoom {
			_ = c.Reload(ctx)
		}
		return err
	}

	if c.store != nil {
		if err := c.store.SaveRooms(ctx, rooms); err != nil {
			c.logger.Warn().Err(err).Msg("failed to save rooms snapshot")
		}
	}

	c.mu.Lock()
	c.state.Rooms = rooms
	c.state.Error = ""
	if c.state.Room != nil && findRoom(rooms, c.state.Room.ID) == nil {
		c.clearRoomLocked(nil)
	}
	c.selectDefaultLocked()
	hasRoom := c.state.Room != nil
	c.mu.Unlock()

	if !hasRoom {
		return nil
	}
	return c.Reload(ctx)
}

func (c *Controller) selectDefaultLocked() {
	if c.state.Room == nil && len(c.state.Rooms) > 0 {
		r := c.state.Rooms[0]
		c.clearRoomLocked(&r)
	}
}

// clearRoomLocked switches to room and drops the bookings of the previous
// one, which must never be checked against the new room.
func (c *Controller) clearRoomLocked(room *model.Room) {
	if c.state.Room != nil && room != nil && c.state.Room.ID == room.ID {
		c.state.Room = room
		return
	}
	c.state.Room = room
	c.state.Bookings = nil
	c.state.Loaded = false
}

func (c *Controller) loadStoredRooms(ctx context.Context) []model.Room {
	if c.store == nil {
		return nil
	}
	rooms, err := c.store.LoadRooms(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read rooms snapshot")
		return nil
	}
	return rooms
}

// SelectRoom switches the calendar to roomID and reloads.
func (c *Controller) SelectRoom(ctx context.Context, roomID string) error {
	c.mu.Lock()
	room := findRoom(c.state.Rooms, roomID)
	if room == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	r := *room
	c.clearRoomLocked(&r)
	c.mu.Unlock()

	return c.Reload(ctx)
}

// PrevWeek moves the calendar one week back and reloads.
func (c *Controller) PrevWeek(ctx context.Context) error {
	return c.setWeek(ctx, func(w calendar.Week) calendar.Week { return w.Prev() })
}

// NextWeek moves the calendar one week forward and reloads.
func (c *Controller) NextWeek(ctx context.Context) error {
	return c.setWeek(ctx, func(w calendar.Week) calendar.Week { return w.Next() })
}

// Today moves the calendar to the current week and reloads.
func (c *Controller) Today(ctx context.Context) error {
	return c.GoTo(ctx, c.resolver.Now())
}

// GoTo moves the calendar to the week containing date and reloads.
func (c *Controller) GoTo(ctx context.Context, date time.Time) error {
	week := c.resolver.Grid().Week(date)
	return c.setWeek(ctx, func(calendar.Week) calendar.Week { return week })
}

func (c *Controller) setWeek(ctx context.Context, move func(calendar.Week) calendar.Week) error {
	c.mu.Lock()
	next := move(c.state.Week)
	if next != c.state.Week {
		c.state.Week = next
		c.state.Loaded = false
	}
	hasRoom := c.state.Room != nil
	c.mu.Unlock()

	if !hasRoom {
		return nil
	}
	return c.Reload(ctx)
}

// Reload fetches bookings for the selected room and week. A reload that is
// overtaken by a newer one discards its result. On failure the previous
// bookings are kept, or the stored snapshot is shown when nothing matching
// is loaded.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Room == nil {
		c.mu.Unlock()
		return ErrNoRoomSelected
	}
	c.gen++
	gen := c.gen
	roomID := c.state.Room.ID
	week := c.state.Week
	c.state.Loading = true
	c.mu.Unlock()

	all, err := c.api.ListBookings(ctx)

	var bookings []model.Booking
	if err == nil {
		bookings = slots.FilterBookings(all, roomID, week)
		if c.store != nil {
			if serr := c.store.SaveWeek(ctx, roomID, week.Key(), bookings); serr != nil {
				c.logger.Warn().Err(serr).Msg("failed to save week snapshot")
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		metrics.IncStaleDiscarded()
		c.logger.Debug().Uint64("generation", gen).Uint64("current", c.gen).Msg("discarding superseded reload")
		return nil
	}
	c.state.Loading = false

	if err != nil {
		c.logger.Error().Err(err).Str("room", roomID).Str("week", week.Key()).Msg("failed to load bookings")
		c.state.Error = "Failed to load calendar data: " + plone.UserMessage(err)
		if !c.state.Loaded {
			c.fallbackLocked(ctx, roomID, week)
		}
		return err
	}

	c.state.Bookings = bookings
	c.state.Loaded = true
	c.state.Stale = false
	c.state.StaleSince = time.Time{}
	c.state.Error = ""
	return nil
}

func (c *Controller) fallbackLocked(ctx context.Context, roomID string, week calendar.Week) {
	if c.store == nil {
		return
	}
	bookings, savedAt, ok, err := c.store.LoadWeek(ctx, roomID, week.Key())
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read week snapshot")
		return
	}
	if !ok {
		return
	}
	metrics.IncSnapshotFallback()
	c.state.Bookings = bookings
	c.state.Loaded = true
	c.state.Stale = true
	c.state.StaleSince = savedAt
}

// DurationOptions lists bookable durations in minutes from the cell at
// (day, slot) of the current view.
func (c *Controller) DurationOptions(day, slot int) []int {
	return c.resolver.DurationOptions(c.View(), day, slot)
}

func findRoom(rooms []model.Room, id string) *model.Room {
	for i := range rooms {
		if rooms[i].ID == id {
			return &rooms[i]
		}
	}
	return nil
}
