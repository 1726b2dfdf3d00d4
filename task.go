package kestrel

// TaskHints carries advisory metadata about a submission. Nothing in this
// package reorders tasks based on hints; they are stored for any future
// scheduler, per the pool's documented non-goal of priority-based
// scheduling, and surfaced for observability via WithOnTaskScheduled.
type TaskHints struct {
	// Priority: lower values are more urgent. Advisory only, ignored by the
	// reference scheduler.
	Priority int
	// IOBytes estimates bytes of I/O the task will perform.
	IOBytes int64
	// CPUCost estimates relative CPU cost.
	CPUCost int64
	// AppID identifies the submitting subsystem, for diagnostics.
	AppID string
}

// task is the type-erased, one-shot unit of work the pool queues and
// workers consume. It is never copied after construction.
type task struct {
	fn        func()
	token     StopToken
	onAbandon func(error)
	hints     TaskHints
}

// abandon runs the task's onAbandon callback, if any, with cause as the
// reason the task never ran.
func (t *task) abandon(cause error) {
	if t.onAbandon != nil {
		t.onAbandon(cause)
	}
}
