package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/internal/model"
	"roombook/internal/slots"
)

// Source provides the rooms and bookings to mirror.
type Source interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
}

type weekPublisher interface {
	PublishWeek(ctx context.Context, room model.Room, view *slots.WeekView) error
}

// SyncCurrentWeek publishes the current week of every room.
func SyncCurrentWeek(ctx context.Context, src Source, pub weekPublisher, resolver *slots.Resolver) error {
	rooms, err := src.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	all, err := src.ListBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	week := resolver.Grid().Week(resolver.Now())
	var errs []error
	for _, room := range rooms {
		view := resolver.BuildWeek(week, slots.FilterBookings(all, room.ID, week), nil)
		if err := pub.PublishWeek(ctx, room, view); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", room.Title, err))
		}
	}
	return errors.Join(errs...)
}

// Run syncs on every tick until ctx is cancelled. resolver is read on each
// tick so grid changes are picked up.
func (p *Publisher) Run(ctx context.Context, src Source, resolver func() *slots.Resolver, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := SyncCurrentWeek(ctx, src, p, resolver()); err != nil {
			p.logger.Error().Err(err).Msg("sheet sync failed")
		} else {
			p.logger.Info().Msg("sheet sync completed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
