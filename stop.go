package kestrel

import (
	"sync"
	"sync/atomic"
)

// stopState is the record shared between a StopSource and every StopToken
// derived from it. requested is 0 until a stop is asked for: -1 for an
// ordinary API-triggered stop, or a positive signal number when the stop
// came from RequestStopFromSignal. Only that field may be touched from a
// signal handler; everything else requires mu.
type stopState struct {
	requested int32 // accessed only via sync/atomic
	mu        sync.Mutex
	cause     error
}

// StopSource is the write side of a cooperative cancellation handle. The
// zero value is not usable; construct one with NewStopSource.
type StopSource struct {
	state *stopState
}

// StopToken is the read side of a cooperative cancellation handle. The zero
// value reports no stop ever requested, so a StopToken{} is a valid "never
// cancelled" token for callers that have no StopSource of their own.
type StopToken struct {
	state *stopState
}

// NewStopSource allocates a fresh, not-yet-requested stop state.
func NewStopSource() *StopSource {
	return &StopSource{state: &stopState{}}
}

// Token returns a StopToken sharing this source's state.
func (s *StopSource) Token() StopToken {
	return StopToken{state: s.state}
}

// RequestStop asks for cancellation, if one has not already been requested.
// Equivalent to RequestStopWithError(ErrCancelled).
func (s *StopSource) RequestStop() {
	s.RequestStopWithError(ErrCancelled)
}

// RequestStopWithError asks for cancellation, recording cause as the reason
// observed by Poll. Only the first call has effect; later calls are no-ops.
func (s *StopSource) RequestStopWithError(cause error) {
	st := s.state
	st.mu.Lock()
	defer st.mu.Unlock()
	if atomic.LoadInt32(&st.requested) != 0 {
		return
	}
	st.cause = cause
	atomic.StoreInt32(&st.requested, -1)
}

// RequestStopFromSignal is safe to call from an async signal handler: it
// touches only the atomic flag, taking no lock and allocating nothing. sig
// must be a positive signal number and is recorded as the requested value;
// IsStopRequested observes it immediately, but Poll's error materializes
// lazily on the next call that can take the mutex.
func (s *StopSource) RequestStopFromSignal(sig int) {
	if sig <= 0 {
		return
	}
	atomic.CompareAndSwapInt32(&s.state.requested, 0, int32(sig))
}

// Reset clears a requested stop, returning the source to its initial state.
// Callers must ensure no concurrent consumer is observing the token while
// resetting.
func (s *StopSource) Reset() {
	st := s.state
	st.mu.Lock()
	defer st.mu.Unlock()
	atomic.StoreInt32(&st.requested, 0)
	st.cause = nil
}

// IsStopRequested reports whether a stop has been requested, without
// taking the mutex.
func (t StopToken) IsStopRequested() bool {
	if t.state == nil {
		return false
	}
	return atomic.LoadInt32(&t.state.requested) != 0
}

// Poll returns nil if no stop has been requested, or the recorded cause
// (materializing the signal-number case into ErrCancelled the first time
// it's observed off the signal path) otherwise.
func (t StopToken) Poll() error {
	if t.state == nil || !t.IsStopRequested() {
		return nil
	}
	st := t.state
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cause == nil {
		// Requested via RequestStopFromSignal: materialize the cause now,
		// off the signal-handling path.
		st.cause = ErrCancelled
	}
	return st.cause
}
