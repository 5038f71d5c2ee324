package lane

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskFunc(t *testing.T) {
	called := false
	task := NewTaskFunc("t1", func(ctx context.Context) error {
		called = true
		return nil
	})

	if task.ID() != "t1" {
		t.Errorf("expected id t1, got %s", task.ID())
	}
	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected function to be called")
	}
	if err := NewTaskFunc("nil", nil).Run(context.Background()); err != nil {
		t.Errorf("expected nil fn to be a no-op, got %v", err)
	}
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	pool := NewWorkerPool("test", 4, 100)
	pool.Start()

	var count atomic.Int32
	for i := 0; i < 50; i++ {
		err := pool.TrySubmit(NewTaskFunc("t", func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if count.Load() != 50 {
		t.Errorf("expected 50 tasks run, got %d", count.Load())
	}
	if pool.TasksProcessed() != 50 {
		t.Errorf("expected 50 processed, got %d", pool.TasksProcessed())
	}
}

func TestWorkerPool_Full(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	pool := NewWorkerPool("small", 1, 1)
	pool.Start()
	defer func() {
		close(release)
		_ = pool.Stop(context.Background())
	}()

	blocker := NewTaskFunc("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	if err := pool.TrySubmit(blocker); err != nil {
		t.Fatalf("submit blocker: %v", err)
	}
	<-started

	// The worker is busy; one slot remains in the queue.
	if err := pool.TrySubmit(NewTaskFunc("queued", func(context.Context) error { return nil })); err != nil {
		t.Fatalf("submit queued: %v", err)
	}

	err := pool.TrySubmit(NewTaskFunc("overflow", func(context.Context) error { return nil }))
	if !IsPoolFullError(err) {
		t.Fatalf("expected PoolFullError, got %v", err)
	}
	var full *PoolFullError
	if !errors.As(err, &full) || full.Capacity != 1 || full.Pool != "small" {
		t.Errorf("unexpected error fields: %+v", full)
	}
	if pool.TasksRejected() != 1 {
		t.Errorf("expected 1 rejected, got %d", pool.TasksRejected())
	}
	if pool.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", pool.QueueDepth())
	}
}

func TestWorkerPool_Closed(t *testing.T) {
	pool := NewWorkerPool("closed", 1, 1)

	err := pool.TrySubmit(NewTaskFunc("t", func(context.Context) error { return nil }))
	if !IsPoolClosedError(err) {
		t.Fatalf("expected PoolClosedError before Start, got %v", err)
	}

	pool.Start()
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if pool.IsRunning() {
		t.Error("expected pool to be stopped")
	}

	err = pool.TrySubmit(NewTaskFunc("t", func(context.Context) error { return nil }))
	if !IsPoolClosedError(err) {
		t.Fatalf("expected PoolClosedError after Stop, got %v", err)
	}

	// Restarting a stopped pool is a no-op.
	pool.Start()
	if pool.IsRunning() {
		t.Error("expected stopped pool to stay stopped")
	}
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	var (
		mu     sync.Mutex
		failed = map[string]error{}
	)
	pool := NewWorkerPool("errs", 2, 10, WithErrorHandler(func(task Task, err error) {
		mu.Lock()
		failed[task.ID()] = err
		mu.Unlock()
	}))
	pool.Start()

	boom := errors.New("boom")
	_ = pool.TrySubmit(NewTaskFunc("err", func(context.Context) error { return boom }))
	_ = pool.TrySubmit(NewTaskFunc("panic", func(context.Context) error { panic("kaboom") }))
	_ = pool.TrySubmit(NewTaskFunc("ok", func(context.Context) error { return nil }))

	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(failed["err"], boom) {
		t.Errorf("expected boom, got %v", failed["err"])
	}
	var pe *PanicError
	if !errors.As(failed["panic"], &pe) || pe.Value != "kaboom" {
		t.Errorf("expected PanicError, got %v", failed["panic"])
	}
	if _, ok := failed["ok"]; ok {
		t.Error("successful task must not reach the error handler")
	}
	if pool.TasksFailed() != 2 || pool.TasksProcessed() != 1 {
		t.Errorf("expected 2 failed and 1 processed, got %d and %d", pool.TasksFailed(), pool.TasksProcessed())
	}
}

func TestWorkerPool_StopTimeout(t *testing.T) {
	pool := NewWorkerPool("slow", 1, 1)
	pool.Start()

	started := make(chan struct{})
	_ = pool.TrySubmit(NewTaskFunc("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewWorkerPool_ClampsSizes(t *testing.T) {
	pool := NewWorkerPool("clamp", 0, 0)
	if pool.Capacity() != 1 {
		t.Errorf("expected capacity 1, got %d", pool.Capacity())
	}
	if pool.Name() != "clamp" {
		t.Errorf("expected name clamp, got %s", pool.Name())
	}
}
