package kestrel

import (
	"github.com/coder/quartz"
	"golang.org/x/time/rate"
)

// config holds the resolved construction-time settings for a Pool. It is
// unexported; callers configure it only through functional Options, the
// style used throughout this package rather than a public struct literal.
type config struct {
	shutdownOnDestroy bool
	pinWorkerThreads  bool
	clock             quartz.Clock
	limiter           *rate.Limiter
	panicHandler      func(worker int, recovered any)
	onTaskScheduled   func(TaskHints)
}

func defaultConfig() config {
	return config{
		shutdownOnDestroy: true,
		clock:             quartz.NewReal(),
	}
}

// Option configures a Pool at construction time.
type Option func(*config)

// WithShutdownOnDestroy controls whether a finalizer shuts the pool down if
// the caller never calls Shutdown explicitly. Make defaults this to true;
// MakeInternal defaults it to false, for pools meant to live for the whole
// process (the GetCPUThreadPool singleton). No at-exit hook is installed:
// a pool without the finalizer is shut down only by an explicit Shutdown
// call.
func WithShutdownOnDestroy(enabled bool) Option {
	return func(c *config) { c.shutdownOnDestroy = enabled }
}

// WithPinWorkerThreads locks each worker goroutine to its OS thread and, on
// platforms that support it, pins that thread to a specific CPU core for
// cache locality. See internal/affinity.
func WithPinWorkerThreads(enabled bool) Option {
	return func(c *config) { c.pinWorkerThreads = enabled }
}

// WithClock overrides the quartz.Clock used for Stats' latency fields
// (Pool.Stats, via clock.Now/Since around task execution) and for a parked
// worker's idle backoff (clock.AfterFunc, see waitForTask). Tests inject
// quartz.NewMock to advance time deterministically instead of sleeping in
// real time.
func WithClock(clock quartz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithOnTaskScheduled installs a hook invoked synchronously with a task's
// hints as it is enqueued, before the task is pushed onto the queue, so
// before any worker can pick it up. This
// is the pool's only observability hook into TaskHints; the hints
// themselves are otherwise opaque once handed to Spawn/Submit.
func WithOnTaskScheduled(hook func(TaskHints)) Option {
	return func(c *config) { c.onTaskScheduled = hook }
}

// WithRateLimiter installs an admission-control gate in front of
// Spawn/Submit: a submission is rejected immediately with ErrRateLimited
// when the limiter's instantaneous budget is exhausted. This never blocks
// the caller, unlike a limiter.Wait-based design would.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *config) { c.limiter = limiter }
}

// WithPanicHandler overrides the pool's default panic handling. The
// default behavior is to capture a stack trace and deliver the panic value
// to the task's future/onAbandon as an error, without crashing the worker.
func WithPanicHandler(handler func(worker int, recovered any)) Option {
	return func(c *config) { c.panicHandler = handler }
}
