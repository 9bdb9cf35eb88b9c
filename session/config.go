package session

import (
	"net/http"
	"time"

	"github.com/p00dle/http-session/cookiejar"
	"github.com/p00dle/http-session/internal/support"
	"github.com/p00dle/http-session/transport"
)

const (
	defaultLockoutTimeMs       = int64(24 * 60 * 60 * 1000)
	defaultHeartbeatIntervalMs = int64(60 * 1000)
)

// Ref is an opaque identity token threaded through one leased handle's
// beforeRequest/enhance/onRelease hooks so they can correlate.
type Ref string

// Config configures one HttpSession. S is the caller's opaque session
// state, carried verbatim through GetState/SetState/Serialize. E is the
// enhancement type merged into the login and logout method objects handed
// to the Login and Logout callbacks.
type Config[S, E any] struct {
	// Login, if set, is run (at most once concurrently, shared by every
	// waiter) whenever the session needs to transition out of Logged Out
	// or Locked Out. A nil Login means the session starts and stays Ready.
	Login func(ref Ref, methods *LoginMethods[S, E]) error
	// Logout runs before a Logged-Out transition whenever the session is
	// currently logged in.
	Logout func(ref Ref, methods *LogoutMethods[S, E]) error

	InitialState   S
	DefaultHeaders http.Header
	SeedCookies    []cookiejar.Cookie

	// AlwaysRenew logs out after every handle release instead of just
	// returning to Ready.
	AlwaysRenew bool

	// LockoutTimeMs is the cooldown a Locked Out session waits before the
	// next login attempt. Zero means the default of 24h.
	LockoutTimeMs int64

	HeartbeatURL string
	// HeartbeatIntervalMs is the delay after each completed request (or
	// heartbeat) before the next heartbeat fires. Zero means 60s.
	HeartbeatIntervalMs int64

	// AllowMultipleRequests turns the single-handle gate off: many handles
	// may be In Use at once. Login is still serialized to one in flight.
	AllowMultipleRequests bool

	Transport           transport.Transport
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	EnhanceLoginMethods  func(ref Ref) E
	EnhanceLogoutMethods func(ref Ref) E

	Logger support.Logger
}

func (c *Config[S, E]) lockoutTimeMs() int64 {
	if c.LockoutTimeMs == 0 {
		return defaultLockoutTimeMs
	}
	return c.LockoutTimeMs
}

func (c *Config[S, E]) heartbeatIntervalMs() int64 {
	if c.HeartbeatIntervalMs == 0 {
		return defaultHeartbeatIntervalMs
	}
	return c.HeartbeatIntervalMs
}

func (c *Config[S, E]) logger() support.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return support.NoopLogger{}
}

func (c *Config[S, E]) buildTransport() transport.Transport {
	if c.Transport != nil {
		return c.Transport
	}
	var opts []transport.Option
	if c.MaxIdleConns != 0 {
		opts = append(opts, transport.WithMaxIdleConns(c.MaxIdleConns))
	}
	if c.MaxIdleConnsPerHost != 0 {
		opts = append(opts, transport.WithMaxIdleConnsPerHost(c.MaxIdleConnsPerHost))
	}
	if c.IdleConnTimeout != 0 {
		opts = append(opts, transport.WithIdleConnTimeout(c.IdleConnTimeout))
	}
	return transport.New(opts...)
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		clone := make([]string, len(vs))
		copy(clone, vs)
		out[k] = clone
	}
	return out
}
