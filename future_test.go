package kestrel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmit_ReturnsValue(t *testing.T) {
	pool, err := Make(2)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	defer pool.Shutdown(true)

	future, err := Submit(pool, TaskHints{}, StopToken{}, nil, func() (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	v, err := future.Get(context.Background())
	if err != nil || v != "hello" {
		t.Fatalf("Get() = (%q, %v), want (\"hello\", nil)", v, err)
	}
}

func TestSubmit_PropagatesTaskError(t *testing.T) {
	pool, err := Make(1)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	defer pool.Shutdown(true)

	wantErr := errors.New("task failed")
	future, err := Submit(pool, TaskHints{}, StopToken{}, nil, func() (int, error) {
		return 0, wantErr
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, gotErr := future.Get(context.Background())
	if !errors.Is(gotErr, wantErr) {
		t.Errorf("Get() error = %v, want %v", gotErr, wantErr)
	}
}

func TestFuture_Get_ContextCancelled(t *testing.T) {
	pool, err := Make(1)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	defer pool.Shutdown(false)

	block := make(chan struct{})
	future, err := Submit(pool, TaskHints{}, StopToken{}, nil, func() (int, error) {
		<-block
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = future.Get(ctx)
	if err == nil {
		t.Error("Get() with an expiring context returned nil error")
	}
}

func TestSubmitVoid(t *testing.T) {
	pool, err := Make(1)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	defer pool.Shutdown(true)

	ran := false
	future, err := SubmitVoid(pool, TaskHints{}, StopToken{}, nil, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("SubmitVoid() error = %v", err)
	}

	if _, err := future.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ran {
		t.Error("SubmitVoid's function never ran")
	}
}
