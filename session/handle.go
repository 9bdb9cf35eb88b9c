package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/p00dle/http-session/request"
)

func newRef() Ref {
	return Ref(uuid.New().String())
}

// Handle is a leased session handle bound to one Ref. Every operation
// checks wasReleased and that the session is currently In Use before
// dispatching; release, invalidate, and reportLockout atomically set
// wasReleased before doing anything else.
type Handle[S, E any] struct {
	ref       Ref
	sess      *HttpSession[S, E]
	onRelease func(Ref)

	released      atomic.Bool
	onReleaseFired atomic.Bool
}

// WasReleased reports whether this handle has already been released,
// invalidated, or used to report a lockout.
func (h *Handle[S, E]) WasReleased() bool { return h.released.Load() }

func (h *Handle[S, E]) guard(op string) *request.Error {
	if h.released.Load() {
		return request.NewError(request.SessionLifecycle, fmt.Sprintf("calling %s failed because session has already been released", op), nil)
	}
	if h.sess.currentState() != InUse {
		h.fireOnRelease()
		return request.NewError(request.SessionLifecycle, fmt.Sprintf("calling %s failed because session is in status %s", op, h.sess.currentState()), nil)
	}
	return nil
}

func (h *Handle[S, E]) fireOnRelease() {
	if h.onReleaseFired.Swap(true) {
		return
	}
	if h.onRelease != nil {
		h.onRelease(h.ref)
	}
}

// GetState returns the session's opaque caller state.
func (h *Handle[S, E]) GetState() (S, *request.Error) {
	if err := h.guard("getState"); err != nil {
		var zero S
		return zero, err
	}
	return h.sess.GetState(), nil
}

// SetState replaces the session's opaque caller state.
func (h *Handle[S, E]) SetState(next S) *request.Error {
	if err := h.guard("setState"); err != nil {
		return err
	}
	h.sess.SetState(next)
	return nil
}

// Request issues a request through the session on behalf of this lease.
func (h *Handle[S, E]) Request(d *request.Descriptor) (*request.Response, *request.Error) {
	if err := h.guard("request"); err != nil {
		return nil, err
	}
	return h.sess.requestInternal(d)
}

// Serialize returns a snapshot of the session's state, headers, and
// cookies.
func (h *Handle[S, E]) Serialize() (Serialized[S], *request.Error) {
	if err := h.guard("serialize"); err != nil {
		return Serialized[S]{}, err
	}
	return h.sess.Serialize(), nil
}

// Release ends this lease, returning the session to Ready (or driving a
// logout if AlwaysRenew is set) and allowing the next queued caller to
// proceed. Double-release fails with a SessionLifecycle error.
func (h *Handle[S, E]) Release() *request.Error {
	if h.released.Swap(true) {
		return request.NewError(request.SessionLifecycle, "calling release failed because session has already been released", nil)
	}
	h.sess.release(h.ref)
	return nil
}

// Invalidate ends this lease and forces the session back to Logged Out,
// running logout first if currently logged in. The next RequestSession
// call re-runs login.
func (h *Handle[S, E]) Invalidate(errMessage string) *request.Error {
	if h.released.Swap(true) {
		return request.NewError(request.SessionLifecycle, "calling invalidate failed because session has already been released", nil)
	}
	h.sess.release(h.ref)
	return h.sess.InvalidateSession(errMessage)
}

// ReportLockout ends this lease and puts the session into Locked Out,
// starting its lockout cooldown from now.
func (h *Handle[S, E]) ReportLockout() *request.Error {
	if h.released.Swap(true) {
		return request.NewError(request.SessionLifecycle, "calling reportLockout failed because session has already been released", nil)
	}
	h.sess.release(h.ref)
	h.sess.reportLockout()
	return nil
}

// InvalidateSession forces the session back to Logged Out, running logout
// first if it is currently logged in. Usable independent of any handle.
func (s *HttpSession[S, E]) InvalidateSession(errMessage string) *request.Error {
	lerr := s.runLogout(newRef())

	s.mu.Lock()
	if errMessage != "" {
		s.status.Error = errMessage
	}
	s.status.State = LoggedOut
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)

	return lerr
}

// reportLockout moves the session into Locked Out, recording now as the
// start of the cooldown.
func (s *HttpSession[S, E]) reportLockout() {
	s.cancelHeartbeat()
	s.setStateLockedOut()
}

// Shutdown clears all timers (including a pending lockout wait, whose
// waiter observes "Session has shutdown"), stops the heartbeat, logs out if
// currently logged in, and sets status Shutdown. Idempotent.
func (s *HttpSession[S, E]) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
		s.cancelHeartbeat()

		s.mu.Lock()
		loggedIn := s.status.IsLoggedIn
		s.mu.Unlock()

		if loggedIn {
			s.runLogout(newRef())
		}

		s.setState(Shutdown)
	})
}

// WithHandle acquires a Handle, calls fn, and unconditionally releases the
// handle before returning fn's error (or the acquisition error).
func WithHandle[S, E any](ctx context.Context, s *HttpSession[S, E], opts RequestOptions, fn func(*Handle[S, E]) *request.Error) *request.Error {
	h, err := s.RequestSession(ctx, opts)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h)
}
