package model

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidInterval is returned when a booking does not start before it ends.
var ErrInvalidInterval = errors.New("booking start must be before end")

// Room is a bookable conference room.
type Room struct {
	ID       string `json:"id"` // content URL (@id)
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
}

// Booking is a reserved interval for a room. Start and End are UTC.
type Booking struct {
	ID      string    `json:"id"`
	RoomID  string    `json:"room_id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Purpose string    `json:"purpose,omitempty"`
	Creator string    `json:"creator"`
}

// User identifies the caller for ownership checks.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Manager  bool   `json:"manager,omitempty"` // may cancel any booking
}

// Validate checks the interval invariant.
func (b *Booking) Validate() error {
	if !b.Start.Before(b.End) {
		return ErrInvalidInterval
	}
	return nil
}

// Duration returns End - Start.
func (b *Booking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Overlaps reports whether [b.Start, b.End) intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

// OverlapsWith checks if this booking overlaps with another booking.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return b.Overlaps(other.Start, other.End)
}

// ContainsTime reports whether t falls inside the booking, end exclusive.
func (b *Booking) ContainsTime(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// IsOwnedBy reports whether u created the booking. The backend records the
// creator as the user id, the login name or the email address. OAuth users
// carry a provider prefix in front of the numeric id the creator holds.
func (b *Booking) IsOwnedBy(u *User) bool {
	if u == nil || b.Creator == "" {
		return false
	}
	switch {
	case u.ID != "" && b.Creator == u.ID:
		return true
	case u.Username != "" && strings.EqualFold(b.Creator, u.Username):
		return true
	case u.Email != "" && strings.EqualFold(b.Creator, u.Email):
		return true
	case isDigits(b.Creator) && strings.HasSuffix(u.ID, b.Creator):
		return true
	}
	return false
}

// CanCancel reports whether u may cancel the booking.
func (b *Booking) CanCancel(u *User) bool {
	return u != nil && (u.Manager || b.IsOwnedBy(u))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
