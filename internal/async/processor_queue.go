package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
)

type ProcessorQueue struct {
	runner  BatchRunner
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration
	sinkTTL time.Duration

	ch     chan Job
	wg     sync.WaitGroup
	once   sync.Once
	sinkMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithSinkTimeout bounds each sink call. The sink gets its own context so a
// job that ran out of time can still be recorded.
func WithSinkTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.sinkTTL = d
		}
	}
}

// WithSink sets the callback for finished jobs; calls are serialized.
func WithSink(s Sink) Option {
	return func(q *ProcessorQueue) {
		q.sink = s
	}
}

func NewProcessorQueue(runner BatchRunner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		sinkTTL: 30 * time.Second,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	b := batch.New(job.Source)
	_, err := q.runner.Run(ctx, b)
	cancel()
	if err != nil && !b.Failed() {
		b.Err = err
	}
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "batch_id", b.ID.String(), "document", job.Source.Name(), "error", err)
	} else {
		q.logger.Info("processed document successfully", "worker_id", workerID, "batch_id", b.ID.String(), "document", job.Source.Name(),
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
	}

	if q.sink != nil {
		q.sinkMu.Lock()
		defer q.sinkMu.Unlock()
		sinkCtx, sinkCancel := context.WithTimeout(context.Background(), q.sinkTTL)
		defer sinkCancel()
		q.sink(sinkCtx, b, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document", job.Source.Name())
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "document", job.Source.Name())
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "document", job.Source.Name())
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
