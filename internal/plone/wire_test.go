package plone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRef_Shapes(t *testing.T) {
	const room = "https://camp.example/conference-rooms/upstairs-room-1"

	tests := []struct {
		name string
		json string
		want RoomRef
	}{
		{"string", `"` + room + `"`, room},
		{"object", `{"@id":"` + room + `","title":"Upstairs Room 1"}`, room},
		{"relation", `{"to_object":"` + room + `"}`, room},
		{"relation with object", `{"to_object":{"@id":"` + room + `"}}`, room},
		{"null", `null`, ""},
		{"empty object", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Room RoomRef `json:"room"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"room":`+tt.json+`}`), &got))
			assert.Equal(t, tt.want, got.Room)
		})
	}

	var bad RoomRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestBookingItem_ToModel(t *testing.T) {
	raw := `{
		"@id": "https://camp.example/conference-rooms/bookings/booking-1",
		"title": "Booking: Room 1 - alice",
		"room": {"to_object": "https://camp.example/conference-rooms/room-1"},
		"start_datetime": "2026-01-15T09:00:00",
		"end_datetime": "2026-01-15T10:30:00",
		"purpose": null,
		"creators": ["alice"],
		"Creator": "alice-login"
	}`
	var it bookingItem
	require.NoError(t, json.Unmarshal([]byte(raw), &it))

	b, err := it.toModel()
	require.NoError(t, err)
	assert.Equal(t, "https://camp.example/conference-rooms/room-1", b.RoomID)
	assert.Equal(t, "alice", b.Creator, "creators[0] wins over Creator")
	assert.Equal(t, 9, b.Start.Hour())
	assert.Equal(t, 90.0, b.Duration().Minutes())
	assert.Empty(t, b.Purpose)

	it.StartDatetime = "soon"
	_, err = it.toModel()
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "booking-1", shortID("https://camp.example/conference-rooms/bookings/booking-1"))
	assert.Equal(t, "booking-1", shortID("https://camp.example/conference-rooms/bookings/booking-1/"))
	assert.Equal(t, "booking-1", shortID("booking-1"))
}
