package kestrel

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestFIFOQueue_TryPop_Empty(t *testing.T) {
	q := NewFIFOQueue[int]()
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned ok=true")
	}
	if !q.Empty() {
		t.Error("Empty() false on freshly constructed queue")
	}
}

func TestFIFOQueue_PushTryPop_Order(t *testing.T) {
	q := NewFIFOQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = (%d, %v), want (%d, true)", v, ok, i)
		}
	}
	if !q.Empty() {
		t.Error("queue not empty after draining all pushes")
	}
}

// TestFIFOQueue_SingleProducerConsumer: one producer pushes 1..1000, one
// consumer pops via WaitAndPop; the popped sequence must equal 1..1000.
func TestFIFOQueue_SingleProducerConsumer(t *testing.T) {
	q := NewFIFOQueue[int]()
	const n = 1000

	go func() {
		for i := 1; i <= n; i++ {
			q.Push(i)
		}
	}()

	ctx := context.Background()
	for i := 1; i <= n; i++ {
		v, err := q.WaitAndPop(ctx)
		if err != nil {
			t.Fatalf("WaitAndPop(%d) error = %v", i, err)
		}
		if v != i {
			t.Fatalf("WaitAndPop() = %d, want %d", v, i)
		}
	}
}

func TestFIFOQueue_WaitAndPop_ContextCancelled(t *testing.T) {
	q := NewFIFOQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.WaitAndPop(ctx)
	if err == nil {
		t.Error("WaitAndPop() on empty queue with expiring context returned nil error")
	}
}

func TestFIFOQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := NewFIFOQueue[int]()
	const numProducers = 4
	const perProducer = 500
	const total = numProducers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	var mu sync.Mutex
	var consumeWg sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumeWg.Add(1)
		go func() {
			defer consumeWg.Done()
			for {
				ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				v, err := q.WaitAndPop(ctx)
				cancel()
				if err != nil {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	consumeWg.Wait()

	if len(seen) != total {
		t.Errorf("saw %d distinct values, want %d", len(seen), total)
	}
}
