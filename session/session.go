// Package session implements the HTTP session state machine: a long-lived
// object that owns credentials, a cookie jar, a connection pool, a
// login/logout callback pair, a request gate, a heartbeat timer, and a
// status/lockout state machine. Callers lease a Handle, issue requests
// through it, and release it.
package session

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/p00dle/http-session/cookiejar"
	"github.com/p00dle/http-session/request"
	"github.com/p00dle/http-session/transport"
)

// HttpSession is the session state machine. S is the caller's opaque state
// type; E is the enhancement type merged into login/logout method objects.
type HttpSession[S, E any] struct {
	mu sync.Mutex

	cfg    Config[S, E]
	status Status
	state  S

	jar            *cookiejar.Jar
	defaultHeaders http.Header
	credentials    any
	tr             transport.Transport

	gate *semaphore.Weighted

	loginGroup  singleflight.Group
	logoutGroup singleflight.Group

	activeHandles int

	heartbeatTimer *time.Timer

	broadcaster *statusBroadcaster

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New constructs a session named name from cfg. The initial lifecycle state
// is Logged Out when a Login callback is configured, Ready otherwise.
func New[S, E any](name string, cfg Config[S, E]) *HttpSession[S, E] {
	jar := cookiejar.NewJar(true)
	for _, c := range cfg.SeedCookies {
		jar.AddCookie(seedCookieURL(c), c)
	}

	initial := LoggedOut
	if cfg.Login == nil {
		initial = Ready
	}

	s := &HttpSession[S, E]{
		cfg:            cfg,
		state:          cfg.InitialState,
		jar:            jar,
		defaultHeaders: cloneHeader(cfg.DefaultHeaders),
		tr:             cfg.buildTransport(),
		broadcaster:    newStatusBroadcaster(),
		shutdownCh:     make(chan struct{}),
		status:         Status{Name: name, State: initial},
	}
	if !cfg.AllowMultipleRequests {
		s.gate = semaphore.NewWeighted(1)
	}
	return s
}

func seedCookieURL(c cookiejar.Cookie) *url.URL {
	scheme := "http"
	if c.IsHTTPS {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &url.URL{Scheme: scheme, Host: c.Domain, Path: path}
}

// GetState returns the caller's opaque session state.
func (s *HttpSession[S, E]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the caller's opaque session state.
func (s *HttpSession[S, E]) SetState(next S) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// SetDefaultHeaders replaces the headers applied to every request this
// session issues, including the login/logout callback's internal requests.
func (s *HttpSession[S, E]) SetDefaultHeaders(h http.Header) {
	s.mu.Lock()
	s.defaultHeaders = cloneHeader(h)
	s.mu.Unlock()
}

// SetCredentials shallow-replaces the credentials object the login method
// object's GetCredentials returns. It takes effect on the next login
// attempt only; it never affects an in-flight login.
func (s *HttpSession[S, E]) SetCredentials(creds any) {
	s.mu.Lock()
	s.credentials = creds
	s.mu.Unlock()
}

func (s *HttpSession[S, E]) getCredentials() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials
}

// OnStatus subscribes to status transitions, delivered synchronously as
// they happen. The returned unsubscribe function is idempotent and may be
// called from within the listener itself.
func (s *HttpSession[S, E]) OnStatus(listener func(Status)) (unsubscribe func()) {
	return s.broadcaster.subscribe(listener)
}

// Serialized is the pure snapshot Serialize returns: safe to persist and
// restore.
type Serialized[S any] struct {
	State          S
	DefaultHeaders http.Header
	Cookies        []cookiejar.Cookie
}

// Serialize returns a snapshot of the caller state, default headers, and
// stored cookies.
func (s *HttpSession[S, E]) Serialize() Serialized[S] {
	s.mu.Lock()
	state := s.state
	headers := cloneHeader(s.defaultHeaders)
	s.mu.Unlock()
	return Serialized[S]{State: state, DefaultHeaders: headers, Cookies: s.jar.ToJSON()}
}

func (s *HttpSession[S, E]) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.State
}

// setState mutates status.State and publishes the new snapshot.
func (s *HttpSession[S, E]) setState(st State) {
	s.mu.Lock()
	s.status.State = st
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)
}

// setStateLockedOut moves status to Locked Out, recording now as the start
// of the cooldown waitForLockout measures against.
func (s *HttpSession[S, E]) setStateLockedOut() {
	now := time.Now()
	s.mu.Lock()
	s.status.State = LockedOut
	s.status.IsLoggedIn = false
	s.status.LastError = &now
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)
}

// requestInternal issues one request through the session's own transport
// and default headers, bypassing the gate. It is what login/logout method
// objects and the heartbeat use. Any outgoing request pauses the heartbeat
// timer for its duration, restarting it once the call completes.
func (s *HttpSession[S, E]) requestInternal(d *request.Descriptor) (*request.Response, *request.Error) {
	s.cancelHeartbeat()
	defer s.scheduleHeartbeat()

	s.mu.Lock()
	if d.Headers == nil {
		d.Headers = cloneHeader(s.defaultHeaders)
	} else {
		merged := cloneHeader(s.defaultHeaders)
		for k, v := range d.Headers {
			merged[k] = v
		}
		d.Headers = merged
	}
	if d.Jar == nil {
		d.Jar = s.jar
	}
	if d.Transport == nil {
		d.Transport = s.tr
	}
	if d.Logger == nil {
		d.Logger = s.cfg.logger()
	}
	s.mu.Unlock()

	return request.Do(d)
}
