// Package group layers structured concurrency on top of a kestrel.Pool: a
// Group runs a batch of related functions on the pool, tracks completion and
// cancellation through an errgroup.Group, and combines their errors
// according to an ErrorMode.
package group

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelpool/kestrel"
	"golang.org/x/sync/errgroup"
)

// Group manages a batch of functions executed on a kestrel.Pool with
// structured concurrency: one Wait call, one cancellation context, one
// combined error.
type Group struct {
	pool   *kestrel.Pool
	eg     *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	config Config

	errorsMux sync.RWMutex
	errors    []error

	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a snapshot of a Group's member function counts.
type Stats struct {
	Running   int64
	Completed int64
	Failed    int64
}

// New creates a new Group with the given options.
func New(opts ...Option) *Group {
	return NewWithContext(context.Background(), opts...)
}

// NewWithContext creates a new Group whose goroutines observe ctx's
// cancellation in addition to the group's own.
func NewWithContext(ctx context.Context, opts ...Option) *Group {
	config := BuildConfig(opts)
	if ctx == nil {
		ctx = context.Background()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	groupCtx, cancel := context.WithCancel(egCtx)

	pool := config.pool
	if pool == nil {
		pool = kestrel.GetCPUThreadPool()
	}

	return &Group{
		pool:   pool,
		eg:     eg,
		ctx:    groupCtx,
		cancel: cancel,
		config: config,
	}
}

// NewWithTimeout creates a Group whose context expires after timeout.
func NewWithTimeout(timeout time.Duration, opts ...Option) *Group {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	g := NewWithContext(ctx, opts...)
	g.cancel = cancel
	return g
}

// NewWithDeadline creates a Group whose context expires at deadline.
func NewWithDeadline(deadline time.Time, opts ...Option) *Group {
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	g := NewWithContext(ctx, opts...)
	g.cancel = cancel
	return g
}

// Go submits fn to run on the group's pool. fn receives the group's
// context, which is cancelled when Wait returns or (in FailFast mode) as
// soon as any member function returns an error.
func (g *Group) Go(fn func(context.Context) error) {
	g.running.Add(1)
	g.eg.Go(func() error {
		defer g.running.Add(-1)

		result := make(chan error, 1)
		submitErr := g.pool.Spawn(kestrel.TaskHints{}, func() {
			defer func() {
				if r := recover(); r != nil {
					result <- &PanicError{Value: r, Stack: string(debug.Stack())}
				}
			}()
			result <- fn(g.ctx)
		}, kestrel.StopToken{}, func(cause error) {
			result <- cause
		})

		var err error
		if submitErr != nil {
			err = submitErr
		} else {
			select {
			case err = <-result:
			case <-g.ctx.Done():
				err = g.ctx.Err()
			}
		}

		g.completed.Add(1)
		if err != nil {
			g.failed.Add(1)
		}
		return g.observe(err)
	})
}

// GoSafe runs fn on the group's pool, discarding its return value; panics
// are still recorded like any other member error.
func (g *Group) GoSafe(fn func(context.Context)) {
	g.Go(func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// observe records a member function's error per the configured ErrorMode
// and returns what the underlying errgroup.Group should see: a non-nil
// error in FailFast mode cancels every other member's context, so only
// FailFast propagates it upward.
func (g *Group) observe(err error) error {
	if err == nil {
		return nil
	}
	switch g.config.errorMode {
	case IgnoreErrors:
		return nil
	case FailFast:
		return err
	case CollectAll:
		g.errorsMux.Lock()
		g.errors = append(g.errors, err)
		g.errorsMux.Unlock()
		return nil
	default:
		return nil
	}
}

// Wait blocks until every submitted function has returned, then reports the
// combined error according to the group's ErrorMode: nil for IgnoreErrors,
// the first error for FailFast, or an AggregateError for CollectAll.
func (g *Group) Wait() error {
	err := g.eg.Wait()
	g.cancel()

	switch g.config.errorMode {
	case IgnoreErrors:
		return nil
	case FailFast:
		return err
	case CollectAll:
		g.errorsMux.RLock()
		defer g.errorsMux.RUnlock()
		if len(g.errors) == 0 {
			return nil
		}
		collected := make([]error, len(g.errors))
		copy(collected, g.errors)
		return AggregateError{Errors: collected}
	default:
		return nil
	}
}

// Stop cancels the group's context, signaling every still-running member
// function to return early. It does not wait for them; call Wait for that.
func (g *Group) Stop() {
	g.cancel()
}

// Stats returns a snapshot of how many member functions are running,
// have completed, and have failed so far.
func (g *Group) Stats() Stats {
	return Stats{
		Running:   g.running.Load(),
		Completed: g.completed.Load(),
		Failed:    g.failed.Load(),
	}
}
