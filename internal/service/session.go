package service

import (
	"sync"

	"github.com/webitel/im-relay-service/internal/domain/model"
)

// SessionState is the per-connection lifecycle: Unregistered -> Registered -> Closed.
type SessionState int32

const (
	Unregistered SessionState = iota
	Registered
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session binds one transport connection to the identity it registered.
type Session struct {
	conn model.Connector

	mu     sync.Mutex
	state  SessionState
	userID string
}

func newSession(conn model.Connector) *Session {
	return &Session{conn: conn}
}

func (s *Session) Conn() model.Connector { return s.conn }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID is empty until the first successful registration.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) snapshot() (SessionState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.userID
}

func (s *Session) markRegistered(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Closed {
		s.state = Registered
		s.userID = userID
	}
}

// markClosed returns the state and user id held before closing.
func (s *Session) markClosed() (SessionState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Closed
	return prev, s.userID
}
