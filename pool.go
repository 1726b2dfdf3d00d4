package kestrel

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a fixed-but-resizable set of worker goroutines draining a single
// shared FIFO queue of tasks. Construct one with Make or MakeInternal, or
// use the process-wide singleton returned by GetCPUThreadPool.
type Pool struct {
	mu            sync.Mutex
	taskAvailable *sync.Cond
	idle          *sync.Cond

	pending *FIFOQueue[*task]

	desiredCapacity int
	liveWorkers     int
	tasksRunning    int

	pleaseShutdown bool
	quickShutdown  bool
	shutdownDone   bool

	creatorPID int

	cfg config

	wg         sync.WaitGroup
	nextWorker int64
	workerIDs  sync.Map // goroutine id (int64) -> struct{}, for OwnsThisThread

	// Latency bookkeeping, fed by runTask via cfg.clock.Now/Since and read
	// by Stats. latencyMaxNs is updated with a CAS loop since it has no
	// associative combine like the sum does.
	latencyTotalNs atomic.Int64
	latencyCount   atomic.Int64
	latencyMaxNs   atomic.Int64
}

// recordLatency folds one task's execution time into the pool's running
// latency statistics.
func (p *Pool) recordLatency(d time.Duration) {
	ns := d.Nanoseconds()
	p.latencyTotalNs.Add(ns)
	p.latencyCount.Add(1)
	for {
		cur := p.latencyMaxNs.Load()
		if ns <= cur || p.latencyMaxNs.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// Make constructs a pool with n desired workers. A finalizer shuts it down
// if the caller never calls Shutdown (see WithShutdownOnDestroy).
func Make(n int, opts ...Option) (*Pool, error) {
	return newPool(n, opts, true)
}

// MakeInternal is identical to Make except the returned pool has
// shutdownOnDestroy = false by default: it is meant for long-lived,
// explicitly-managed pools such as the process-global CPU pool, rather
// than relying on finalizer-driven teardown.
func MakeInternal(n int, opts ...Option) (*Pool, error) {
	return newPool(n, opts, false)
}

func newPool(n int, opts []Option, shutdownOnDestroyDefault bool) (*Pool, error) {
	if n <= 0 {
		return nil, invalidf("pool capacity must be positive, got %d", n)
	}

	cfg := defaultConfig()
	cfg.shutdownOnDestroy = shutdownOnDestroyDefault
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		pending:         NewFIFOQueue[*task](),
		desiredCapacity: n,
		creatorPID:      os.Getpid(),
		cfg:             cfg,
	}
	p.taskAvailable = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.launchWorkers(n)

	if cfg.shutdownOnDestroy {
		runtime.SetFinalizer(p, func(p *Pool) {
			_ = p.Shutdown(true)
		})
	}

	return p, nil
}

// launchWorkers starts n additional worker goroutines. Caller must not
// hold p.mu.
func (p *Pool) launchWorkers(n int) {
	for i := 0; i < n; i++ {
		id := p.nextWorker
		p.nextWorker++
		p.mu.Lock()
		p.liveWorkers++
		p.mu.Unlock()
		p.wg.Add(1)
		go runWorker(p, id)
	}
}

// protectAgainstFork reinitializes pool state if the calling process is not
// the one that constructed the pool, i.e. we're in a forked child that
// inherited memory but none of the parent's goroutines. Every public
// operation calls this first.
func (p *Pool) protectAgainstFork() {
	pid := os.Getpid()
	p.mu.Lock()
	if pid == p.creatorPID {
		p.mu.Unlock()
		return
	}
	p.creatorPID = pid
	desired := p.desiredCapacity
	p.liveWorkers = 0
	p.tasksRunning = 0
	p.pleaseShutdown = false
	p.quickShutdown = false
	p.shutdownDone = false
	p.pending = NewFIFOQueue[*task]()
	p.mu.Unlock()

	p.latencyTotalNs.Store(0)
	p.latencyCount.Store(0)
	p.latencyMaxNs.Store(0)

	p.launchWorkers(desired)
}

// Spawn enqueues a fire-and-forget task. fn is never invoked if token is
// already stopped at pickup time; onAbandon (if non-nil) is called with the
// stop/shutdown reason instead.
func (p *Pool) Spawn(hints TaskHints, fn func(), token StopToken, onAbandon func(error)) error {
	return p.enqueue(hints, fn, token, onAbandon)
}

func (p *Pool) enqueue(hints TaskHints, fn func(), token StopToken, onAbandon func(error)) error {
	p.protectAgainstFork()

	if p.cfg.limiter != nil && !p.cfg.limiter.Allow() {
		return ErrRateLimited
	}

	p.mu.Lock()
	if p.pleaseShutdown {
		p.mu.Unlock()
		return ErrShutdown
	}
	p.mu.Unlock()

	if p.cfg.onTaskScheduled != nil {
		p.cfg.onTaskScheduled(hints)
	}

	t := &task{fn: fn, token: token, onAbandon: onAbandon, hints: hints}
	p.pending.Push(t)
	p.mu.Lock()
	p.taskAvailable.Signal()
	p.mu.Unlock()
	return nil
}

// DefaultCapacity returns runtime.GOMAXPROCS(0), minimum 1, honoring a
// positive KESTREL_POOL_CAPACITY integer override, which is read on every
// call.
func DefaultCapacity() int {
	if v := os.Getenv("KESTREL_POOL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

var (
	cpuPoolOnce sync.Once
	cpuPool     *Pool
)

// GetCPUThreadPool returns a process-wide pool sized by DefaultCapacity,
// constructed lazily on first use.
func GetCPUThreadPool() *Pool {
	cpuPoolOnce.Do(func() {
		p, err := MakeInternal(DefaultCapacity())
		if err != nil {
			// DefaultCapacity is always >= 1, so this cannot happen; a
			// Pool in a known-bad state is still better than a panic from
			// a lazily-initialized global.
			p = &Pool{}
		}
		cpuPool = p
	})
	return cpuPool
}

// GetCPUThreadPoolCapacity returns the current desired capacity of the
// process-wide CPU pool.
func GetCPUThreadPoolCapacity() int {
	return GetCPUThreadPool().GetCapacity()
}

// SetCPUThreadPoolCapacity resizes the process-wide CPU pool.
func SetCPUThreadPoolCapacity(n int) error {
	return GetCPUThreadPool().SetCapacity(n)
}

// GetCapacity returns the desired worker count.
func (p *Pool) GetCapacity() int {
	p.protectAgainstFork()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.desiredCapacity
}

// SetCapacity changes the desired worker count. Shrinking wakes workers so
// the surplus can self-terminate at their next loop iteration; growing
// launches new workers immediately.
func (p *Pool) SetCapacity(n int) error {
	p.protectAgainstFork()
	if n <= 0 {
		return invalidf("pool capacity must be positive, got %d", n)
	}

	p.mu.Lock()
	if p.pleaseShutdown {
		p.mu.Unlock()
		return ErrShutdown
	}
	old := p.desiredCapacity
	p.desiredCapacity = n
	p.taskAvailable.Broadcast()
	p.mu.Unlock()

	if n > old {
		p.launchWorkers(n - old)
	}
	return nil
}

// GetActualCapacity reports the number of live worker goroutines.
func (p *Pool) GetActualCapacity() int {
	p.protectAgainstFork()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveWorkers
}

// GetNumTasks reports tasks either running or queued.
func (p *Pool) GetNumTasks() int {
	p.protectAgainstFork()
	p.mu.Lock()
	running := p.tasksRunning
	p.mu.Unlock()
	return running + p.pending.Len()
}

// OwnsThisThread reports whether the calling goroutine is one of this
// pool's own workers. This exists so code can detect (and avoid) the
// nested-parallelism pattern of submitting a task and then blocking the
// enclosing task on its future, which is unsupported and may deadlock.
func (p *Pool) OwnsThisThread() bool {
	p.protectAgainstFork()
	_, owns := p.workerIDs.Load(currentGoroutineID())
	return owns
}

// WaitForIdle blocks until the queue is empty and no task is running.
func (p *Pool) WaitForIdle() {
	p.protectAgainstFork()
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.tasksRunning != 0 || !p.pending.Empty() {
		p.idle.Wait()
	}
}

// Shutdown stops accepting new submissions. If wait is true, it drains the
// queue before returning; if false, queued tasks are abandoned (their
// onAbandon is invoked with ErrCancelled) and only in-flight tasks finish.
// Shutdown is idempotent.
func (p *Pool) Shutdown(wait bool) error {
	p.protectAgainstFork()

	p.mu.Lock()
	if p.shutdownDone {
		p.mu.Unlock()
		return nil
	}
	p.pleaseShutdown = true
	if !wait {
		p.quickShutdown = true
	}
	p.taskAvailable.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	if !wait {
		for {
			t, ok := p.pending.TryPop()
			if !ok {
				break
			}
			t.abandon(ErrCancelled)
		}
	}

	p.mu.Lock()
	p.shutdownDone = true
	p.mu.Unlock()
	return nil
}

// currentGoroutineID extracts the calling goroutine's id by parsing the
// header line of its own stack trace. Go has no public goroutine-id API;
// this best-effort technique exists solely to back OwnsThisThread's
// nested-submission guard and is not used anywhere performance-sensitive.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := string(buf[:n])
	var id int64
	_, _ = fmt.Sscanf(line, "goroutine %d ", &id)
	return id
}
