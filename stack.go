package kestrel

import "sync/atomic"

// stackNode holds one element plus the internal reference count used to
// decide when it can be reclaimed.
type stackNode[T any] struct {
	data          T
	internalCount atomic.Int64
	next          *countedPtr[T]
}

// countedPtr pairs an external reference count with a node pointer. It is
// immutable once published: every transition allocates a fresh countedPtr
// and swings the stack's head to point at it, which is the Go stand-in for
// the C++ packed double-word atomic<counted_node_ptr> — Go has no native
// double-word CAS, so the generation counter lives in a freshly allocated
// wrapper instead of a packed word.
type countedPtr[T any] struct {
	externalCount int64
	ptr           *stackNode[T]
}

// LIFOStack is a lock-free, multi-producer/multi-consumer stack using split
// external/internal reference counting for safe reclamation: a node is
// only ever freed once every goroutine that observed it while racing
// through Pop has dropped its reference, at which point ordinary garbage
// collection reclaims it — there is no manual delete or hazard-pointer
// bookkeeping, only the decision of when the last reference is gone.
type LIFOStack[T any] struct {
	head atomic.Pointer[countedPtr[T]]
}

// NewLIFOStack constructs an empty stack.
func NewLIFOStack[T any]() *LIFOStack[T] {
	return &LIFOStack[T]{}
}

// Push inserts value at the top of the stack.
func (s *LIFOStack[T]) Push(value T) {
	n := &stackNode[T]{data: value}
	for {
		old := s.head.Load()
		n.next = old
		newHead := &countedPtr[T]{externalCount: 1, ptr: n}
		if s.head.CompareAndSwap(old, newHead) {
			return
		}
	}
}

// increaseHeadCount bumps the external reference count on the current head
// and publishes the bumped value, retrying until no concurrent Push/Pop
// changed head out from under it. Returns nil if the stack was empty.
func (s *LIFOStack[T]) increaseHeadCount() *countedPtr[T] {
	for {
		old := s.head.Load()
		if old == nil || old.ptr == nil {
			return old
		}
		bumped := &countedPtr[T]{externalCount: old.externalCount + 1, ptr: old.ptr}
		if s.head.CompareAndSwap(old, bumped) {
			return bumped
		}
	}
}

// Pop removes and returns the top element. ok is false if the stack was
// empty.
func (s *LIFOStack[T]) Pop() (value T, ok bool) {
	for {
		oldHead := s.increaseHeadCount()
		if oldHead == nil || oldHead.ptr == nil {
			return value, false
		}

		ptr := oldHead.ptr
		if s.head.CompareAndSwap(oldHead, ptr.next) {
			value = ptr.data
			// This goroutine popped the node: -1 for the pop, -1 for this
			// goroutine's own external reference, which is why the
			// correction below is externalCount - 2 (faithfully ported
			// from the split-refcount scheme this is grounded on).
			correction := oldHead.externalCount - 2
			ptr.internalCount.Add(correction)
			// No explicit free: once this frame returns and no other
			// racing Pop still holds ptr, nothing references the node and
			// the garbage collector reclaims it. The counters above exist
			// only to decide *when* that's true, which in this language
			// the GC already enforces for us.
			return value, true
		}

		// Lost the race to swing head: we're no longer the one responsible
		// for unlinking the node, just drop our external reference.
		ptr.internalCount.Add(-1)
	}
}

// Drain pops every remaining element, discarding them. It mirrors the
// source stack's destructor, which pops in a loop until empty, and is
// useful in tests that want a deterministic empty state.
func (s *LIFOStack[T]) Drain() {
	for {
		if _, ok := s.Pop(); !ok {
			return
		}
	}
}
