package booking

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"roombook/internal/metrics"
	"roombook/internal/model"
	"roombook/internal/plone"
)

var ErrInvalidCell = errors.New("no bookable slot at this position")

// Request describes a booking the user wants to create.
type Request struct {
	Start    time.Time
	Duration time.Duration
	Purpose  string
}

// Book validates req against the loaded bookings, submits it and reloads
// the week. The returned booking is the backend's copy.
func (c *Controller) Book(ctx context.Context, req Request) (*model.Booking, error) {
	c.mu.Lock()
	if c.state.Room == nil {
		c.mu.Unlock()
		return nil, ErrNoRoomSelected
	}
	room := *c.state.Room
	var existing []model.Booking
	for _, b := range c.state.Bookings {
		if b.RoomID == room.ID {
			existing = append(existing, b)
		}
	}
	c.mu.Unlock()

	start := req.Start
	end := start.Add(req.Duration)
	if err := c.resolver.Validate(start, end, existing); err != nil {
		metrics.IncBookingCreated("invalid")
		c.setError(err)
		return nil, err
	}

	nb := plone.NewBooking{
		Title:   bookingTitle(room, c.user),
		RoomID:  room.ID,
		Start:   start.UTC(),
		End:     end.UTC(),
		Purpose: strings.TrimSpace(req.Purpose),
	}
	created, err := c.api.CreateBooking(ctx, nb)
	if err != nil {
		metrics.IncBookingCreated("error")
		c.logger.Error().Err(err).Str("room", room.ID).Time("start", start).Msg("failed to create booking")
		c.setError(fmt.Errorf("failed to create booking: %s", plone.UserMessage(err)))
		return nil, err
	}
	metrics.IncBookingCreated("success")
	c.logger.Info().Str("booking", created.ID).Str("room", room.ID).Time("start", start).Msg("booking created")
	if c.notifier != nil {
		announced := *created
		if announced.Start.IsZero() {
			announced.Start, announced.End = nb.Start, nb.End
		}
		c.notifier.BookingCreated(room, announced, c.user)
	}

	if err := c.Reload(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("reload after create failed")
	}
	return created, nil
}

// BookCell books the cell at (day, slot) of the current view for minutes.
func (c *Controller) BookCell(ctx context.Context, day, slot, minutes int, purpose string) (*model.Booking, error) {
	cell, ok := c.View().Cell(day, slot)
	if !ok || !cell.Bookable() {
		return nil, ErrInvalidCell
	}
	return c.Book(ctx, Request{
		Start:    cell.Start,
		Duration: time.Duration(minutes) * time.Minute,
		Purpose:  purpose,
	})
}

// Cancel cancels a booking by content URL or short id. Bookings in the
// loaded week that belong to someone else are rejected without calling the
// backend unless the user is a manager.
func (c *Controller) Cancel(ctx context.Context, bookingID string) error {
	c.mu.Lock()
	var room model.Room
	if c.state.Room != nil {
		room = *c.state.Room
	}
	var target *model.Booking
	for i := range c.state.Bookings {
		if id := c.state.Bookings[i].ID; id == bookingID || path.Base(id) == bookingID {
			b := c.state.Bookings[i]
			target = &b
			break
		}
	}
	c.mu.Unlock()

	if target != nil && !target.CanCancel(&c.user) {
		metrics.IncBookingCancelled("forbidden")
		c.logger.Warn().Str("booking", bookingID).Str("creator", target.Creator).Msg("cancel rejected: not the owner")
		c.setError(ErrNotOwner)
		return ErrNotOwner
	}

	if err := c.api.CancelBooking(ctx, bookingID); err != nil {
		status := "error"
		if errors.Is(err, plone.ErrPermission) {
			status = "forbidden"
		}
		metrics.IncBookingCancelled(status)
		c.logger.Error().Err(err).Str("booking", bookingID).Msg("failed to cancel booking")
		c.setError(fmt.Errorf("failed to cancel booking: %s", plone.UserMessage(err)))
		return err
	}
	metrics.IncBookingCancelled("success")
	c.logger.Info().Str("booking", bookingID).Msg("booking cancelled")
	if c.notifier != nil {
		cancelled := model.Booking{ID: bookingID}
		if target != nil {
			cancelled = *target
		}
		c.notifier.BookingCancelled(room, cancelled, c.user)
	}

	if room.ID == "" {
		return nil
	}
	if err := c.Reload(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("reload after cancel failed")
	}
	return nil
}

// MyBookings lists the user's bookings across all rooms.
func (c *Controller) MyBookings(ctx context.Context) ([]plone.OwnBooking, error) {
	list, err := c.api.MyBookings(ctx)
	if err != nil {
		c.setError(fmt.Errorf("failed to load your bookings: %s", plone.UserMessage(err)))
		return nil, err
	}
	return list, nil
}

// ClearError drops the last recorded error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.state.Error = ""
	c.mu.Unlock()
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.state.Error = plone.UserMessage(err)
	c.mu.Unlock()
}

func bookingTitle(room model.Room, user model.User) string {
	name := user.Username
	if name == "" {
		name = user.ID
	}
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("Booking: %s - %s", room.Title, name)
}

