// Package kestrel provides a CPU-bound worker pool with cooperative
// cancellation, modeled on Apache Arrow's C++ thread pool.
//
// Kestrel is designed for scenarios requiring bounded, resizable worker
// concurrency with futures for return values and a cooperative stop
// mechanism that composes across an entire call graph. It also exports the
// two concurrent containers the pool is built from: a two-lock FIFO queue
// and a lock-free LIFO stack, both generic and usable standalone.
//
// # Key Features
//
//   - Fixed-but-resizable worker set backed by a single shared FIFO queue
//   - Futures for tasks that need to return a value or an error
//   - Cooperative cancellation via StopSource/StopToken, signal-safe on the request path
//   - Graceful (drain) and quick (abandon) shutdown modes
//   - Optional rate limiting, CPU pinning, and an injectable clock driving
//     both Stats' latency fields and a worker's idle backoff
//   - Fork-safety: pool state is reinitialized transparently in a forked child
//
// # Quick Start
//
//	pool, err := kestrel.Make(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown(true)
//
//	future, err := kestrel.Submit(pool, kestrel.TaskHints{}, kestrel.StopToken{}, nil,
//	    func() (int, error) {
//	        return 42, nil
//	    })
//	if err != nil {
//	    log.Fatal(err)
//	}
//	value, err := future.Get(context.Background())
//
// # Cancellation
//
// A StopSource is created independently of any pool and shared with any
// number of tasks via StopToken:
//
//	src := kestrel.NewStopSource()
//	token := src.Token()
//	future, _ := kestrel.Submit(pool, kestrel.TaskHints{}, token, nil, work)
//	src.RequestStop() // future resolves Cancelled if work hasn't started yet
//
// # Shutdown
//
// Graceful shutdown waits for every queued task to run:
//
//	pool.Shutdown(true)
//
// Quick shutdown abandons anything still queued, letting only in-flight
// tasks finish:
//
//	pool.Shutdown(false)
//
// # The CPU pool singleton
//
// GetCPUThreadPool returns a process-wide pool sized by DefaultCapacity,
// lazily constructed on first use:
//
//	pool := kestrel.GetCPUThreadPool()
//
// # Non-goals
//
// Nested parallelism (blocking a task on a future submitted from within
// that same task) is not supported and may deadlock. TaskHints.Priority is
// advisory only and never reorders the queue. There is no persistent
// queue, no work-stealing, and no continuation chaining.
//
// # License
//
// See the LICENSE file in the repository root for license information.
package kestrel
