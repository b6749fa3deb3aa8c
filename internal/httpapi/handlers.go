package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roombook/internal/booking"
	"roombook/internal/export"
	"roombook/internal/metrics"
	"roombook/internal/model"
	"roombook/internal/plone"
	"roombook/internal/slots"
)

// SessionRequest is the body of POST /api/session.
type SessionRequest struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Manager  bool   `json:"manager"`
}

// SessionResponse identifies a new session.
type SessionResponse struct {
	SessionID string       `json:"session_id"`
	User      model.User   `json:"user"`
	Rooms     []model.Room `json:"rooms"`
	Error     string       `json:"error,omitempty"`
}

// WeekResponse is the calendar as the client renders it.
type WeekResponse struct {
	Room       *model.Room     `json:"room"`
	Week       string          `json:"week"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Loaded     bool            `json:"loaded"`
	Loading    bool            `json:"loading"`
	Stale      bool            `json:"stale"`
	StaleSince *time.Time      `json:"stale_since,omitempty"`
	Error      string          `json:"error,omitempty"`
	View       *slots.WeekView `json:"view"`
}

// BookingRequest is the body of POST /api/bookings. Either Start or the
// Day/Slot cell position must be given.
type BookingRequest struct {
	Start           string `json:"start,omitempty"`
	Day             *int   `json:"day,omitempty"`
	Slot            *int   `json:"slot,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Purpose         string `json:"purpose"`
}

// DurationOption is one choice of the duration picker.
type DurationOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// handleCreateSession opens a calendar session and loads the room list.
// POST /api/session
func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_session")

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Username = strings.TrimSpace(req.Username)
	if req.UserID == "" && req.Username == "" {
		writeError(w, http.StatusBadRequest, "user_id or username is required")
		return
	}
	if req.UserID == "" {
		req.UserID = req.Username
	}

	user := model.User{ID: req.UserID, Username: req.Username, Email: strings.TrimSpace(req.Email), Manager: req.Manager}
	ctrl := s.factory(req.Token, user, s.resolver.Load())
	sess := s.sessions.create(ctrl)
	s.logger.Info().Str("session", sess.id).Str("user", user.ID).Msg("session created")

	resp := SessionResponse{SessionID: sess.id, User: user}
	if err := ctrl.LoadRooms(r.Context()); err != nil {
		resp.Error = ctrl.State().Error
	}
	resp.Rooms = ctrl.State().Rooms
	writeJSON(w, http.StatusCreated, resp)
}

// DELETE /api/session
func (s *HTTPServer) handleDeleteSession(w http.ResponseWriter, _ *http.Request, sess *session) {
	metrics.IncHTTP("delete_session")
	s.sessions.remove(sess.id)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/rooms?reload=true
func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("rooms")

	st := sess.ctrl.State()
	if len(st.Rooms) == 0 || r.URL.Query().Get("reload") == "true" {
		if err := sess.ctrl.LoadRooms(r.Context()); err != nil && len(sess.ctrl.State().Rooms) == 0 {
			writeFailure(w, err)
			return
		}
		st = sess.ctrl.State()
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": st.Rooms, "selected": st.Room})
}

// PUT /api/room
func (s *HTTPServer) handleSelectRoom(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("select_room")

	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	err := sess.ctrl.SelectRoom(r.Context(), req.RoomID)
	if errors.Is(err, booking.ErrUnknownRoom) || (err != nil && !sess.ctrl.State().Loaded) {
		writeFailure(w, err)
		return
	}
	s.writeWeek(w, sess)
}

// GET /api/week?date=YYYY-MM-DD
func (s *HTTPServer) handleWeek(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("week")

	if raw := r.URL.Query().Get("date"); raw != "" {
		loc := s.resolver.Load().Grid().Location
		if loc == nil {
			loc = time.Local
		}
		date, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		_ = sess.ctrl.GoTo(r.Context(), date)
	}
	s.writeWeek(w, sess)
}

// POST /api/week/{prev|next|today}
func (s *HTTPServer) handleWeekNav(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("week_nav")

	ctx := r.Context()
	switch r.PathValue("direction") {
	case "prev":
		_ = sess.ctrl.PrevWeek(ctx)
	case "next":
		_ = sess.ctrl.NextWeek(ctx)
	case "today":
		_ = sess.ctrl.Today(ctx)
	default:
		writeError(w, http.StatusNotFound, "unknown direction; use prev, next or today")
		return
	}
	s.writeWeek(w, sess)
}

// POST /api/reload
func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("reload")

	if err := sess.ctrl.Reload(r.Context()); err != nil && !sess.ctrl.State().Loaded {
		writeFailure(w, err)
		return
	}
	s.writeWeek(w, sess)
}

// GET /api/durations?day=N&slot=N
func (s *HTTPServer) handleDurations(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("durations")

	day, errDay := strconv.Atoi(r.URL.Query().Get("day"))
	slot, errSlot := strconv.Atoi(r.URL.Query().Get("slot"))
	if errDay != nil || errSlot != nil {
		writeError(w, http.StatusBadRequest, "day and slot must be integers")
		return
	}

	minutes := sess.ctrl.DurationOptions(day, slot)
	options := make([]DurationOption, 0, len(minutes))
	for _, m := range minutes {
		options = append(options, DurationOption{Minutes: m, Label: slots.FormatDuration(m)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("create_booking")

	var req BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}

	var (
		created *model.Booking
		err     error
	)
	switch {
	case req.Start != "":
		start, perr := plone.ParseTimestamp(req.Start)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid start timestamp")
			return
		}
		created, err = sess.ctrl.Book(r.Context(), booking.Request{
			Start:    start,
			Duration: time.Duration(req.DurationMinutes) * time.Minute,
			Purpose:  req.Purpose,
		})
	case req.Day != nil && req.Slot != nil:
		created, err = sess.ctrl.BookCell(r.Context(), *req.Day, *req.Slot, req.DurationMinutes, req.Purpose)
	default:
		writeError(w, http.StatusBadRequest, "start or day and slot are required")
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DELETE /api/bookings/{id}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("cancel_booking")

	id := r.PathValue("id")
	if err := sess.ctrl.Cancel(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Booking cancelled successfully"})
}

// GET /api/my-bookings
func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request, sess *session) {
	metrics.IncHTTP("my_bookings")

	list, err := sess.ctrl.MyBookings(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []plone.OwnBooking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list, "count": len(list)})
}

// GET /api/week.xlsx
func (s *HTTPServer) handleExport(w http.ResponseWriter, _ *http.Request, sess *session) {
	metrics.IncHTTP("export")

	st := sess.ctrl.State()
	if st.Room == nil {
		writeFailure(w, booking.ErrNoRoomSelected)
		return
	}

	var listed []model.Booking
	if st.Loaded {
		listed = st.Bookings
	}
	var buf bytes.Buffer
	if err := export.WeekXLSX(&buf, *st.Room, sess.ctrl.View(), listed); err != nil {
		s.logger.Error().Err(err).Msg("week export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s.xlsx"`, st.Week.Key()))
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) writeWeek(w http.ResponseWriter, sess *session) {
	st := sess.ctrl.State()
	resp := WeekResponse{
		Room:    st.Room,
		Week:    st.Week.Key(),
		Start:   st.Week.Start,
		End:     st.Week.End,
		Loaded:  st.Loaded,
		Loading: st.Loading,
		Stale:   st.Stale,
		Error:   st.Error,
		View:    sess.ctrl.View(),
	}
	if st.Stale && !st.StaleSince.IsZero() {
		since := st.StaleSince
		resp.StaleSince = &since
	}
	writeJSON(w, http.StatusOK, resp)
}
