package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/p00dle/http-session/cookiejar"
	"github.com/p00dle/http-session/request"
)

// LoginMethods is what a Login callback receives: the narrow set of
// operations it is allowed to perform against the owning session, plus
// whatever Config.EnhanceLoginMethods merged on top as Extra.
type LoginMethods[S, E any] struct {
	Extra E

	ref  Ref
	sess *HttpSession[S, E]
}

func (m *LoginMethods[S, E]) GetCredentials() any { return m.sess.getCredentials() }

// SetState shallow-replaces the session's opaque caller state.
func (m *LoginMethods[S, E]) SetState(next S) { m.sess.SetState(next) }

// SetHeartbeatURL overrides the configured heartbeat URL, empty string
// disabling it. Logout method objects do not expose this — the asymmetry
// is intentional.
func (m *LoginMethods[S, E]) SetHeartbeatURL(url string) {
	m.sess.mu.Lock()
	m.sess.cfg.HeartbeatURL = url
	m.sess.mu.Unlock()
}

func (m *LoginMethods[S, E]) SetDefaultHeaders(h http.Header) { m.sess.SetDefaultHeaders(h) }

func (m *LoginMethods[S, E]) AddCookies(hostURL string, raws []string) int {
	u, err := parseCookieURL(hostURL)
	if err != nil {
		return 0
	}
	return m.sess.jar.AddCookies(u, raws)
}

func (m *LoginMethods[S, E]) RemoveCookies(f cookiejar.RemoveFilter) int {
	return m.sess.jar.RemoveCookies(f)
}

// Request issues a request through the session's own transport, bypassing
// the gate entirely (the caller is already holding the login slot).
func (m *LoginMethods[S, E]) Request(d *request.Descriptor) (*request.Response, *request.Error) {
	return m.sess.requestInternal(d)
}

// LogoutMethods mirrors LoginMethods minus SetHeartbeatURL.
type LogoutMethods[S, E any] struct {
	Extra E

	ref  Ref
	sess *HttpSession[S, E]
}

func (m *LogoutMethods[S, E]) GetCredentials() any              { return m.sess.getCredentials() }
func (m *LogoutMethods[S, E]) SetState(next S)                  { m.sess.SetState(next) }
func (m *LogoutMethods[S, E]) SetDefaultHeaders(h http.Header)  { m.sess.SetDefaultHeaders(h) }
func (m *LogoutMethods[S, E]) AddCookies(hostURL string, raws []string) int {
	u, err := parseCookieURL(hostURL)
	if err != nil {
		return 0
	}
	return m.sess.jar.AddCookies(u, raws)
}
func (m *LogoutMethods[S, E]) RemoveCookies(f cookiejar.RemoveFilter) int {
	return m.sess.jar.RemoveCookies(f)
}
func (m *LogoutMethods[S, E]) Request(d *request.Descriptor) (*request.Response, *request.Error) {
	return m.sess.requestInternal(d)
}

func parseCookieURL(raw string) (*url.URL, error) {
	return url.Parse(raw)
}

// ensureLoggedIn transitions the session through Logging In to Ready (or
// Error) if it is not already usable. Only one login runs at a time; every
// caller that arrives while one is in flight shares its outcome.
func (s *HttpSession[S, E]) ensureLoggedIn(ctx context.Context, ref Ref) *request.Error {
	s.mu.Lock()
	loggedIn := s.status.IsLoggedIn
	st := s.status.State
	hasLogin := s.cfg.Login != nil
	s.mu.Unlock()

	if !hasLogin {
		return nil
	}
	if loggedIn && st != LockedOut {
		return nil
	}

	_, err, _ := s.loginGroup.Do("login", func() (any, error) {
		return nil, s.performLogin(ctx, ref)
	})
	if err != nil {
		if le, ok := err.(*request.Error); ok {
			return le
		}
		return request.NewError(request.SessionLifecycle, "login callback failed", err)
	}
	return nil
}

func (s *HttpSession[S, E]) performLogin(ctx context.Context, ref Ref) error {
	if err := s.waitForLockout(ctx); err != nil {
		return err
	}

	s.setState(LoggingIn)

	methods := &LoginMethods[S, E]{ref: ref, sess: s}
	if s.cfg.EnhanceLoginMethods != nil {
		methods.Extra = s.cfg.EnhanceLoginMethods(ref)
	}

	if err := s.cfg.Login(ref, methods); err != nil {
		now := time.Now()
		s.mu.Lock()
		s.status.Error = err.Error()
		s.status.LastError = &now
		s.status.IsLoggedIn = false
		s.status.State = ErrorState
		snap := s.status
		s.mu.Unlock()
		s.broadcaster.publish(snap)
		s.cancelHeartbeat()
		return request.NewError(request.SessionLifecycle, "login callback failed", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.status.IsLoggedIn = true
	s.status.Error = ""
	s.status.UptimeSince = &now
	s.status.State = Ready
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)
	s.scheduleHeartbeat()
	return nil
}

// runLogout drives the Logout callback, shared across concurrent callers the
// same way login is. It is a no-op if the session is not currently logged
// in or no Logout callback is configured.
func (s *HttpSession[S, E]) runLogout(ref Ref) *request.Error {
	s.mu.Lock()
	loggedIn := s.status.IsLoggedIn
	hasLogout := s.cfg.Logout != nil
	s.mu.Unlock()

	if !loggedIn {
		return nil
	}
	if !hasLogout {
		s.mu.Lock()
		s.status.IsLoggedIn = false
		s.mu.Unlock()
		s.cancelHeartbeat()
		return nil
	}

	_, err, _ := s.logoutGroup.Do("logout", func() (any, error) {
		methods := &LogoutMethods[S, E]{ref: ref, sess: s}
		if s.cfg.EnhanceLogoutMethods != nil {
			methods.Extra = s.cfg.EnhanceLogoutMethods(ref)
		}
		return nil, s.cfg.Logout(ref, methods)
	})

	s.cancelHeartbeat()
	s.mu.Lock()
	s.status.IsLoggedIn = false
	s.mu.Unlock()

	if err != nil {
		return request.NewError(request.SessionLifecycle, "logout callback failed", err)
	}
	return nil
}

// waitForLockout suspends the caller until the configured cooldown has
// elapsed, if the session is currently Locked Out. The wait is canceled by
// shutdown (observed as "Session has shutdown") or by ctx.
func (s *HttpSession[S, E]) waitForLockout(ctx context.Context) error {
	s.mu.Lock()
	st := s.status.State
	lastErr := s.status.LastError
	lockoutMs := s.cfg.lockoutTimeMs()
	s.mu.Unlock()

	if st != LockedOut || lastErr == nil {
		return nil
	}

	remaining := time.Until(lastErr.Add(time.Duration(lockoutMs) * time.Millisecond))
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.shutdownCh:
		return request.NewError(request.SessionLifecycle, "Session has shutdown", nil)
	case <-ctx.Done():
		return request.NewError(request.Timeout, "queued session request exceeded its wait budget", ctx.Err())
	}
}
