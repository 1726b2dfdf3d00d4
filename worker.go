package kestrel

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/kestrelpool/kestrel/internal/affinity"
)

// idleBackoff bounds how long a parked worker waits on taskAvailable
// before waking on its own to re-check shutdown/capacity state, even
// absent a Signal/Broadcast. It is driven by the pool's clock so tests can
// advance a mock clock instead of waiting in real time.
const idleBackoff = 5 * time.Second

// runWorker is the body of one worker goroutine. It loops: wait for a task
// or a shutdown/shrink signal, run the task with panic recovery, repeat.
// There is no work-stealing and no priority routing; every worker drains
// the same single FIFO queue in submission order.
func runWorker(p *Pool, id int64) {
	defer p.wg.Done()

	if p.cfg.pinWorkerThreads {
		unpin := affinity.SetupWorkerAffinity(int(id))
		defer unpin()
	}

	gid := currentGoroutineID()
	p.workerIDs.Store(gid, struct{}{})
	defer p.workerIDs.Delete(gid)

	for {
		t, ok := waitForTask(p)
		if !ok {
			return
		}
		runTask(p, id, t)
	}
}

// waitForTask blocks until there is a task to run or this worker should
// exit (quick shutdown, graceful shutdown with an empty queue, or the
// desired capacity shrank below the live worker count). ok is false in the
// exit case, and the worker has then already been removed from liveWorkers
// under the same lock hold, so a shrink retires only the surplus.
func waitForTask(p *Pool) (*task, bool) {
	p.mu.Lock()
	for {
		if p.quickShutdown || p.liveWorkers > p.desiredCapacity {
			p.liveWorkers--
			p.mu.Unlock()
			return nil, false
		}
		if t, got := p.pending.TryPop(); got {
			p.tasksRunning++
			p.mu.Unlock()
			return t, true
		}
		if p.pleaseShutdown {
			p.liveWorkers--
			p.mu.Unlock()
			return nil, false
		}
		condWaitTimeout(p, idleBackoff)
	}
}

// condWaitTimeout is p.taskAvailable.Wait(), but also wakes on its own
// after d if nothing Signals/Broadcasts first. Caller must hold p.mu;
// cond.Wait's usual contract (lock released while parked, reacquired
// before return) is unaffected.
func condWaitTimeout(p *Pool, d time.Duration) {
	timer := p.cfg.clock.AfterFunc(d, p.taskAvailable.Broadcast)
	defer timer.Stop()
	p.taskAvailable.Wait()
}

// runTask executes t outside the pool mutex and restores pool bookkeeping
// afterward, recovering from any panic so one bad task cannot take down a
// worker.
func runTask(p *Pool, workerID int64, t *task) {
	defer func() {
		p.mu.Lock()
		p.tasksRunning--
		if p.tasksRunning == 0 && p.pending.Empty() {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}()

	if err := t.token.Poll(); err != nil {
		t.abandon(err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if p.cfg.panicHandler != nil {
				p.cfg.panicHandler(int(workerID), r)
			} else {
				stack := debug.Stack()
				t.abandon(NewStatus(KindInvalid, "task panicked", fmt.Errorf("%v\n%s", r, stack)))
			}
		}
	}()

	start := p.cfg.clock.Now()
	t.fn()
	p.recordLatency(p.cfg.clock.Since(start))
}
