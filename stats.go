package kestrel

import "time"

// Stats is a point-in-time snapshot of pool occupancy and task latency. It
// is intentionally small: the pool does not track per-hint breakdowns,
// since TaskHints are advisory-only and not meant to drive observability
// dashboards; LatencyAvg/LatencyMax cover every task regardless of hints.
//
// Example:
//
//	stats := pool.Stats()
//	fmt.Printf("desired=%d live=%d running=%d queued=%d\n",
//	    stats.DesiredCapacity, stats.ActualCapacity, stats.TasksRunning, stats.Queued)
//	fmt.Printf("avg latency=%v max latency=%v\n", stats.LatencyAvg, stats.LatencyMax)
type Stats struct {
	DesiredCapacity int
	ActualCapacity  int
	TasksRunning    int
	Queued          int

	// LatencyAvg and LatencyMax cover the wall-clock time (per the pool's
	// clock, see WithClock) spent inside task bodies, across every task
	// that has run so far. Both are zero until at least one task
	// completes.
	LatencyAvg time.Duration
	LatencyMax time.Duration
}

// Stats returns a snapshot of the pool's current occupancy and latency.
func (p *Pool) Stats() Stats {
	p.protectAgainstFork()
	p.mu.Lock()
	s := Stats{
		DesiredCapacity: p.desiredCapacity,
		ActualCapacity:  p.liveWorkers,
		TasksRunning:    p.tasksRunning,
	}
	p.mu.Unlock()
	s.Queued = p.pending.Len()

	if count := p.latencyCount.Load(); count > 0 {
		s.LatencyAvg = time.Duration(p.latencyTotalNs.Load() / count)
	}
	s.LatencyMax = time.Duration(p.latencyMaxNs.Load())
	return s
}
