package session

import (
	"context"
	"time"

	"github.com/p00dle/http-session/request"
)

// RequestOptions configures one call to RequestSession.
type RequestOptions struct {
	// Timeout bounds how long this call waits for a free slot and for a
	// Locked Out cooldown to elapse before login. Zero means wait
	// indefinitely (subject to ctx). A Login callback that is running is
	// waited for until it returns, without this bound.
	Timeout time.Duration
	// BeforeRequest, if set, runs once this caller has reached the head of
	// the queue (acquired the gate) and before login is attempted.
	BeforeRequest func(ref Ref)
	// OnRelease, if set, runs the first time a Handle operation observes
	// the session is no longer In Use for this lease.
	OnRelease func(ref Ref)
}

// RequestSession enqueues a caller and, once it reaches the head of the
// queue (or immediately, in multi-request mode) and login succeeds,
// returns a leased Handle. In single-request mode at most one Handle is
// outstanding at a time; additional callers wait FIFO behind the gate.
func (s *HttpSession[S, E]) RequestSession(ctx context.Context, opts RequestOptions) (*Handle[S, E], *request.Error) {
	ref := newRef()

	s.mu.Lock()
	s.status.InQueue++
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)

	failAndDequeue := func(err *request.Error) (*Handle[S, E], *request.Error) {
		s.mu.Lock()
		s.status.InQueue--
		snap := s.status
		s.mu.Unlock()
		s.broadcaster.publish(snap)
		return nil, err
	}

	waitCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if s.gate != nil {
		if err := s.gate.Acquire(waitCtx, 1); err != nil {
			if ctx.Err() == nil {
				return failAndDequeue(request.NewError(request.Timeout, "queued session request exceeded its wait budget", err))
			}
			return failAndDequeue(request.NewError(request.SessionLifecycle, "session request canceled", err))
		}
	}

	if opts.BeforeRequest != nil {
		opts.BeforeRequest(ref)
	}

	if err := s.ensureLoggedIn(waitCtx, ref); err != nil {
		if s.gate != nil {
			s.gate.Release(1)
		}
		return failAndDequeue(err)
	}

	s.mu.Lock()
	s.activeHandles++
	s.status.State = InUse
	snap = s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)

	return &Handle[S, E]{ref: ref, sess: s, onRelease: opts.OnRelease}, nil
}

// release is invoked exactly once per Handle, by Release/Invalidate/
// ReportLockout. It drops the gate slot (if any), decrements inQueue, and
// drives the Ready/Logging-Out transition.
func (s *HttpSession[S, E]) release(ref Ref) {
	s.mu.Lock()
	s.activeHandles--
	s.status.InQueue--
	alwaysRenew := s.cfg.AlwaysRenew
	st := s.status.State
	remaining := s.activeHandles
	if !alwaysRenew && remaining == 0 && st != LockedOut && st != ErrorState {
		s.status.State = Ready
	}
	snap := s.status
	s.mu.Unlock()
	s.broadcaster.publish(snap)

	if alwaysRenew && st != LockedOut && st != ErrorState {
		s.setState(LoggingOut)
		s.runLogout(ref)
		s.setState(LoggedOut)
	}

	if s.gate != nil {
		s.gate.Release(1)
	}
}
