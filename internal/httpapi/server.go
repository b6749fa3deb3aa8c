// Package httpapi exposes calendar sessions over JSON.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"roombook/internal/booking"
	"roombook/internal/model"
	"roombook/internal/slots"
)

const sessionHeader = "X-Session-ID"

// ControllerFactory builds the controller for a new session. token is the
// caller's bearer token for the content API.
type ControllerFactory func(token string, user model.User, resolver *slots.Resolver) *booking.Controller

// HTTPServer serves the calendar API.
type HTTPServer struct {
	server   *http.Server
	sessions *sessionStore
	factory  ControllerFactory
	resolver atomic.Pointer[slots.Resolver]
	logger   zerolog.Logger
}

// NewHTTPServer creates the server listening on port. Sessions idle for
// longer than sessionTTL are dropped.
func NewHTTPServer(port int, resolver *slots.Resolver, factory ControllerFactory, sessionTTL time.Duration, logger *zerolog.Logger) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "httpapi").Logger()
	}
	s := &HTTPServer{
		sessions: newSessionStore(sessionTTL),
		factory:  factory,
		logger:   l,
	}
	s.resolver.Store(resolver)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/session", s.withSession(s.handleDeleteSession))
	mux.HandleFunc("GET /api/rooms", s.withSession(s.handleRooms))
	mux.HandleFunc("PUT /api/room", s.withSession(s.handleSelectRoom))
	mux.HandleFunc("GET /api/week", s.withSession(s.handleWeek))
	mux.HandleFunc("POST /api/week/{direction}", s.withSession(s.handleWeekNav))
	mux.HandleFunc("GET /api/week.xlsx", s.withSession(s.handleExport))
	mux.HandleFunc("POST /api/reload", s.withSession(s.handleReload))
	mux.HandleFunc("GET /api/durations", s.withSession(s.handleDurations))
	mux.HandleFunc("POST /api/bookings", s.withSession(s.handleCreateBooking))
	mux.HandleFunc("DELETE /api/bookings/{id}", s.withSession(s.handleCancelBooking))
	mux.HandleFunc("GET /api/my-bookings", s.withSession(s.handleMyBookings))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Resolver returns the resolver new sessions get.
func (s *HTTPServer) Resolver() *slots.Resolver {
	return s.resolver.Load()
}

// SetGrid switches the grid used by sessions created from now on.
func (s *HTTPServer) SetGrid(resolver *slots.Resolver) {
	s.resolver.Store(resolver)
}

// Start serves until ctx is cancelled, sweeping idle sessions once a minute.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.sessions.sweep(); n > 0 {
					s.logger.Debug().Int("removed", n).Msg("expired sessions removed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("calendar api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

func (s *HTTPServer) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.get(r.Header.Get(sessionHeader))
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "unknown or expired session")
			return
		}
		h(w, r, sess)
	}
}
