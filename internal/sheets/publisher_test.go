package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"roombook/internal/calendar"
	"roombook/internal/model"
	"roombook/internal/slots"
)

type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	calls   []string
	written gsheets.ValueRange
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1")
	switch {
	case r.Method == http.MethodGet && path == "":
		f.calls = append(f.calls, "get")
		var ss gsheets.Spreadsheet
		for _, tab := range f.tabs {
			ss.Sheets = append(ss.Sheets, &gsheets.Sheet{Properties: &gsheets.SheetProperties{Title: tab}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	case r.Method == http.MethodPost && path == ":batchUpdate":
		var req gsheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.calls = append(f.calls, "add:"+req.Requests[0].AddSheet.Properties.Title)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear:"+strings.TrimSuffix(strings.TrimPrefix(path, "/values/"), ":clear"))
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/values/"):
		f.calls = append(f.calls, "update:"+strings.TrimPrefix(path, "/values/")+"?"+r.URL.Query().Get("valueInputOption"))
		_ = json.NewDecoder(r.Body).Decode(&f.written)
		_, _ = io.WriteString(w, `{"updatedCells": 1}`)
	default:
		http.NotFound(w, r)
	}
}

func testView() *slots.WeekView {
	grid := calendar.Grid{StartHour: 9, EndHour: 11, SlotWidth: 60, Location: time.UTC}
	resolver := slots.NewResolver(grid, nil, nil)
	return resolver.BuildWeek(grid.Week(time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)), []model.Booking{{
		Title: "Review", Creator: "bob",
		Start: time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
	}}, nil)
}

func newTestPublisher(t *testing.T, fake *fakeSheets) *Publisher {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	p, err := NewPublisherWithOptions(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	return p
}

func TestPublishWeek_CreatesTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Library"}}
	p := newTestPublisher(t, fake)

	require.NoError(t, p.PublishWeek(context.Background(), model.Room{Title: "Aquarium"}, testView()))

	assert.Equal(t, []string{"get", "add:Aquarium", "clear:'Aquarium'", "update:'Aquarium'!A1?RAW"}, fake.calls)
	require.Len(t, fake.written.Values, 4)
	assert.Equal(t, "Aquarium, 2026-01-12..2026-01-18", fake.written.Values[0][0])
	assert.Equal(t, "Time", fake.written.Values[1][0])
	assert.Equal(t, "Review (bob)", fake.written.Values[2][1])
}

func TestPublishWeek_ExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Aquarium"}}
	p := newTestPublisher(t, fake)

	require.NoError(t, p.PublishWeek(context.Background(), model.Room{Title: "Aquarium"}, testView()))
	assert.Equal(t, []string{"get", "clear:'Aquarium'", "update:'Aquarium'!A1?RAW"}, fake.calls)
}

func TestPublishWeek_SpreadsheetMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	p, err := NewPublisherWithOptions(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	err = p.PublishWeek(context.Background(), model.Room{Title: "Aquarium"}, testView())
	assert.ErrorContains(t, err, "get spreadsheet")
}

func TestTabName(t *testing.T) {
	assert.Equal(t, "Room (1)-2", tabName(model.Room{Title: "Room [1]/2"}))
	assert.Equal(t, "http---cms-rooms-x", tabName(model.Room{ID: "http://cms/rooms/x"}))
}
