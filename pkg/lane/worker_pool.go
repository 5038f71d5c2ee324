package lane

import (
	"context"
	"sync"
	"sync/atomic"
)

// ErrorHandler receives task failures, including recovered panics.
type ErrorHandler func(task Task, err error)

// WorkerPool runs tasks on a fixed set of goroutines fed by a buffered queue.
type WorkerPool struct {
	name       string
	maxWorkers int
	taskCh     chan Task
	onError    ErrorHandler

	// State
	mu       sync.RWMutex
	running  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Metrics
	tasksProcessed atomic.Int64
	tasksFailed    atomic.Int64
	tasksRejected  atomic.Int64
}

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithErrorHandler sets the callback for failed tasks.
func WithErrorHandler(h ErrorHandler) PoolOption {
	return func(p *WorkerPool) {
		p.onError = h
	}
}

// NewWorkerPool creates a new WorkerPool. Non-positive sizes are raised to 1.
func NewWorkerPool(name string, maxWorkers, capacity int, opts ...PoolOption) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	p := &WorkerPool{
		name:       name,
		maxWorkers: maxWorkers,
		taskCh:     make(chan Task, capacity),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers. It is a no-op on a running or stopped pool.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped {
		return
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.running = true
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop closes the queue and waits for queued tasks to finish. If ctx ends
// first, in-flight tasks see their context cancelled and Stop returns
// ctx.Err() without waiting further.
func (p *WorkerPool) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.cancel != nil
		p.running = false
		p.stopped = true
		close(p.taskCh)
		p.mu.Unlock()

		if !started {
			return
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		p.cancel()
	})
	return err
}

// TrySubmit enqueues task without blocking.
func (p *WorkerPool) TrySubmit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		p.tasksRejected.Add(1)
		return &PoolClosedError{Pool: p.name}
	}

	select {
	case p.taskCh <- task:
		return nil
	default:
		p.tasksRejected.Add(1)
		return &PoolFullError{Pool: p.name, Capacity: cap(p.taskCh)}
	}
}

// worker drains the queue until it is closed.
func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.taskCh {
		p.processTask(task)
	}
}

func (p *WorkerPool) processTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(task, &PanicError{TaskID: task.ID(), Value: r})
		}
	}()

	if err := task.Run(p.ctx); err != nil {
		p.fail(task, err)
		return
	}
	p.tasksProcessed.Add(1)
}

func (p *WorkerPool) fail(task Task, err error) {
	p.tasksFailed.Add(1)
	if p.onError != nil {
		p.onError(task, err)
	}
}

// Name returns the pool name.
func (p *WorkerPool) Name() string {
	return p.name
}

// QueueDepth returns the number of queued tasks.
func (p *WorkerPool) QueueDepth() int {
	return len(p.taskCh)
}

// Capacity returns the queue capacity.
func (p *WorkerPool) Capacity() int {
	return cap(p.taskCh)
}

// TasksProcessed returns the number of tasks that completed without error.
func (p *WorkerPool) TasksProcessed() int64 {
	return p.tasksProcessed.Load()
}

// TasksFailed returns the number of tasks that errored or panicked.
func (p *WorkerPool) TasksFailed() int64 {
	return p.tasksFailed.Load()
}

// TasksRejected returns the number of submissions that were refused.
func (p *WorkerPool) TasksRejected() int64 {
	return p.tasksRejected.Load()
}

// IsRunning returns true if the pool accepts tasks.
func (p *WorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
