package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lifeos/ctxpack/pkg/lane"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
)

const (
	DefaultWorkers   = 2
	DefaultQueueSize = 1024
	DefaultTimeout   = 3 * time.Second
)

// Recorder hands records to a worker pool that writes them to every sink.
type Recorder struct {
	pool    *lane.WorkerPool
	sinks   []Sink
	timeout time.Duration
	logger  logger.Logger
	metrics *metrics.Manager

	workers   int
	queueSize int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithWorkers sets the number of background writers.
func WithWorkers(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithQueueSize sets how many records may wait before new ones are dropped.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithTimeout bounds each sink write.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// NewRecorder starts a Recorder writing to sinks.
func NewRecorder(sinks []Sink, opts ...Option) *Recorder {
	r := &Recorder{
		sinks:     sinks,
		timeout:   DefaultTimeout,
		logger:    logger.Global(),
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.pool = lane.NewWorkerPool("telemetry", r.workers, r.queueSize,
		lane.WithErrorHandler(func(task lane.Task, err error) {
			r.logger.Error("telemetry job failed", "record_id", task.ID(), "error", err)
		}),
	)
	r.pool.Start()
	return r
}

// Sinks returns the names of the configured sinks.
func (r *Recorder) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Record queues rec for delivery. It returns immediately; a full or closed
// queue drops the record with one warning.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if len(r.sinks) == 0 {
		return
	}
	rec = rec.stamp()
	spanCtx := trace.SpanContextFromContext(ctx)

	err := r.pool.TrySubmit(lane.NewTaskFunc(rec.ID, func(poolCtx context.Context) error {
		if spanCtx.IsValid() {
			poolCtx = trace.ContextWithSpanContext(poolCtx, spanCtx)
		}
		r.deliver(poolCtx, rec)
		return nil
	}))
	r.metrics.SetTelemetryQueueDepth(r.pool.QueueDepth())
	if err != nil {
		r.metrics.RecordTelemetryDropped()
		r.logger.WarnContext(ctx, "telemetry record dropped",
			"stage", "telemetry",
			"user_id", rec.UserID,
			"record_id", rec.ID,
			"error", err,
		)
	}
}

func (r *Recorder) deliver(ctx context.Context, rec Record) {
	for _, s := range r.sinks {
		err := r.write(ctx, s, rec)
		r.metrics.RecordTelemetryWrite(s.Name(), err)
		if err != nil {
			r.logger.WarnContext(ctx, "telemetry write failed",
				"stage", "telemetry",
				"sink", s.Name(),
				"user_id", rec.UserID,
				"record_id", rec.ID,
				"error", err,
			)
		}
	}
	r.metrics.SetTelemetryQueueDepth(r.pool.QueueDepth())
}

func (r *Recorder) write(ctx context.Context, s Sink, rec Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), p)
		}
	}()
	writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return s.Write(writeCtx, rec)
}

// Reader returns the first sink that can list records.
func (r *Recorder) Reader() (Reader, bool) {
	for _, s := range r.sinks {
		if rd, ok := s.(Reader); ok {
			return rd, true
		}
	}
	return nil, false
}

// Close drains queued records, then closes every sink.
func (r *Recorder) Close(ctx context.Context) error {
	var errs []error
	if err := r.pool.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain telemetry queue: %w", err))
	}
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
