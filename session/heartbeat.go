package session

import (
	"time"

	"github.com/p00dle/http-session/request"
)

// scheduleHeartbeat (re)starts the heartbeat timer if a heartbeat URL is
// configured and the session is currently Ready or In Use. Called after
// every completed request and after a successful login.
func (s *HttpSession[S, E]) scheduleHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.HeartbeatURL == "" {
		return
	}
	if s.status.State != Ready && s.status.State != InUse {
		return
	}
	if s.heartbeatTimer != nil {
		s.heartbeatTimer.Stop()
	}
	interval := time.Duration(s.cfg.heartbeatIntervalMs()) * time.Millisecond
	s.heartbeatTimer = time.AfterFunc(interval, s.fireHeartbeat)
}

// cancelHeartbeat stops any pending heartbeat timer. Called before every
// outgoing request, and on login failure, logout, lockout, invalidation,
// and shutdown.
func (s *HttpSession[S, E]) cancelHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heartbeatTimer != nil {
		s.heartbeatTimer.Stop()
		s.heartbeatTimer = nil
	}
}

func (s *HttpSession[S, E]) fireHeartbeat() {
	s.mu.Lock()
	url := s.cfg.HeartbeatURL
	s.mu.Unlock()
	if url == "" {
		return
	}
	s.requestInternal(&request.Descriptor{URL: url, Method: "GET"})
}
