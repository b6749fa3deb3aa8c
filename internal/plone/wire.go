package plone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"roombook/internal/model"
)

// RoomRef is a booking's room reference. The backend sends it as a plain
// string, an object with "@id", or a relation wrapper with "to_object";
// all of them decode to the room identifier.
type RoomRef string

func (r *RoomRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RoomRef(s)
		return nil
	}

	var obj struct {
		ID       string          `json:"@id"`
		ToObject json.RawMessage `json:"to_object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("room reference: %w", err)
	}
	if obj.ID != "" {
		*r = RoomRef(obj.ID)
		return nil
	}
	if len(obj.ToObject) > 0 {
		return r.UnmarshalJSON(obj.ToObject)
	}
	*r = ""
	return nil
}

type roomItem struct {
	ID       string `json:"@id"`
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
}

func (it roomItem) toModel() model.Room {
	capacity := it.Capacity
	if capacity < 0 {
		capacity = 0
	}
	return model.Room{ID: it.ID, Title: it.Title, Capacity: capacity}
}

type bookingItem struct {
	ID            string   `json:"@id"`
	Title         string   `json:"title"`
	Room          RoomRef  `json:"room"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	Purpose       string   `json:"purpose"`
	Creators      []string `json:"creators"`
	Creator       string   `json:"Creator"`
}

func (it bookingItem) toModel() (model.Booking, error) {
	start, err := ParseTimestamp(it.StartDatetime)
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking %s start: %w", it.ID, err)
	}
	end, err := ParseTimestamp(it.EndDatetime)
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking %s end: %w", it.ID, err)
	}

	creator := it.Creator
	if len(it.Creators) > 0 && it.Creators[0] != "" {
		creator = it.Creators[0]
	}

	return model.Booking{
		ID:      it.ID,
		RoomID:  string(it.Room),
		Title:   it.Title,
		Start:   start,
		End:     end,
		Purpose: it.Purpose,
		Creator: creator,
	}, nil
}

type searchResponse[T any] struct {
	Items      []T `json:"items"`
	ItemsTotal int `json:"items_total"`
	Batching   *struct {
		Next string `json:"next"`
	} `json:"batching,omitempty"`
}

type createBookingRequest struct {
	Type          string `json:"@type"`
	Title         string `json:"title"`
	Room          string `json:"room"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Purpose       string `json:"purpose"`
}

type statusPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p statusPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Error
}

// OwnBooking is an entry of the caller's booking list.
type OwnBooking struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	Title     string `json:"title"`
	Start     string `json:"start_datetime"`
	End       string `json:"end_datetime"`
	RoomTitle string `json:"room"`
	Purpose   string `json:"purpose"`
	URL       string `json:"url"`
}

// shortID returns the last path segment of a content URL.
func shortID(id string) string {
	return path.Base(strings.TrimRight(id, "/"))
}
