package plone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-15T09:00:00", want},
		{"2026-01-15T09:00", want},
		{"2026-01-15T09:00:00.000000", want},
		{"2026-01-15T09:00:00Z", want},
		{"2026-01-15T09:00:00+00:00", want},
		{"2026-01-15T11:00:00+02:00", want},
		{"2026-01-15T04:00:00-05:00", want},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTimestamp("")
	assert.Error(t, err)
	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	instants := []time.Time{
		time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 1, 23, 30, 0, 0, loc),
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, in := range instants {
		s := FormatTimestamp(in)
		assert.NotContains(t, s, "Z")
		assert.Len(t, s, len(SubmitLayout))

		out, err := ParseTimestamp(s)
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "%s -> %s -> %s", in, s, out)
	}

	assert.Equal(t, "2026-07-02T06:30:00", FormatTimestamp(instants[1]))
}
