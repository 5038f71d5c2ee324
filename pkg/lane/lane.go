// Package lane provides a bounded worker pool for fire-and-forget jobs.
//
// A WorkerPool owns a fixed number of goroutines draining a buffered queue.
// Submission never blocks: when the queue is full the job is rejected with a
// PoolFullError and the caller decides whether to drop or log it.
//
// Basic usage:
//
//	pool := lane.NewWorkerPool("telemetry", 2, 256)
//	pool.Start()
//	defer pool.Stop(context.Background())
//
//	err := pool.TrySubmit(lane.NewTaskFunc("rec-1", func(ctx context.Context) error {
//	    return sink.Write(ctx, rec)
//	}))
package lane

import "context"

// Task is a unit of work run by a WorkerPool.
type Task interface {
	// ID returns the task identifier used in diagnostics.
	ID() string

	// Run executes the task.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	id string
	fn func(ctx context.Context) error
}

// NewTaskFunc creates a new TaskFunc.
func NewTaskFunc(id string, fn func(ctx context.Context) error) *TaskFunc {
	return &TaskFunc{id: id, fn: fn}
}

// ID implements Task.ID.
func (t *TaskFunc) ID() string {
	return t.id
}

// Run implements Task.Run.
func (t *TaskFunc) Run(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}
