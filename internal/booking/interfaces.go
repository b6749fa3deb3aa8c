package booking

import (
	"context"
	"time"

	"roombook/internal/model"
	"roombook/internal/plone"
)

// API is the content backend the controller reads from and writes to.
type API interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	CreateBooking(ctx context.Context, nb plone.NewBooking) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	MyBookings(ctx context.Context) ([]plone.OwnBooking, error)
}

// SnapshotStore keeps last-known-good data for offline display.
type SnapshotStore interface {
	SaveRooms(ctx context.Context, rooms []model.Room) error
	LoadRooms(ctx context.Context) ([]model.Room, error)
	SaveWeek(ctx context.Context, roomID, week string, bookings []model.Booking) error
	LoadWeek(ctx context.Context, roomID, week string) ([]model.Booking, time.Time, bool, error)
}

// Notifier receives booking events after the backend accepted them.
type Notifier interface {
	BookingCreated(room model.Room, b model.Booking, user model.User)
	BookingCancelled(room model.Room, b model.Booking, user model.User)
}
