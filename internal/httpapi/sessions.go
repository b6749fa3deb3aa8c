package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"roombook/internal/booking"
	"roombook/internal/metrics"
)

type session struct {
	id       string
	ctrl     *booking.Controller
	lastSeen time.Time
}

type sessionStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, now: time.Now, m: make(map[string]*session)}
}

func (s *sessionStore) create(ctrl *booking.Controller) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session{id: uuid.NewString(), ctrl: ctrl, lastSeen: s.now()}
	s.m[sess.id] = sess
	metrics.SetActiveSessions(len(s.m))
	return sess
}

// get returns a live session and refreshes its expiry.
func (s *sessionStore) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.m[id]
	if sess == nil {
		return nil
	}
	now := s.now()
	if s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl {
		delete(s.m, id)
		metrics.SetActiveSessions(len(s.m))
		return nil
	}
	sess.lastSeen = now
	return sess
}

func (s *sessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	metrics.SetActiveSessions(len(s.m))
}

// sweep drops expired sessions and returns how many were removed.
func (s *sessionStore) sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.m {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.m, id)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.m))
	return removed
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
