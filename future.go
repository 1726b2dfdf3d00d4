package kestrel

import (
	"context"
	"sync"
)

// result is the one-shot payload delivered through a Future's channel.
type result[R any] struct {
	value R
	err   error
}

// Future is a one-shot handle for a task's eventual value or error.
// Future[R] cannot itself carry a type parameter into a method (Go forbids
// generic methods on a non-generic receiver for the constructor), which is
// why Submit below is a free function rather than a *Pool method.
type Future[R any] struct {
	done chan struct{}
	once sync.Once
	r    result[R]
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// complete delivers value/err to the future. Only the first call has
// effect; later calls are silently dropped, matching the task lifecycle's
// "completes exactly once" guarantee.
func (f *Future[R]) complete(value R, err error) {
	f.once.Do(func() {
		f.r = result[R]{value: value, err: err}
		close(f.done)
	})
}

// Get blocks until the task completes or ctx is done, whichever comes
// first.
func (f *Future[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.r.value, f.r.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Done exposes the completion signal for select-based composition. It does
// not consume any value; callers still need Get to retrieve the result.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Submit enqueues a task that invokes fn and completes the returned future
// with its result. Submit is a free function, not a *Pool method, because
// Go does not allow a non-generic receiver's method to introduce its own
// type parameter.
func Submit[R any](p *Pool, hints TaskHints, token StopToken, onAbandon func(error), fn func() (R, error)) (*Future[R], error) {
	future := newFuture[R]()
	wrapped := func() {
		value, err := fn()
		future.complete(value, err)
	}
	abandonAndComplete := func(cause error) {
		if onAbandon != nil {
			onAbandon(cause)
		}
		var zero R
		future.complete(zero, cause)
	}
	if err := p.enqueue(hints, wrapped, token, abandonAndComplete); err != nil {
		return nil, err
	}
	return future, nil
}

// SubmitVoid is a convenience for tasks with no meaningful return value.
func SubmitVoid(p *Pool, hints TaskHints, token StopToken, onAbandon func(error), fn func() error) (*Future[struct{}], error) {
	return Submit(p, hints, token, onAbandon, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
