package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
)

// ProcessorQueue is a fixed worker pool. A run id is accepted at most once
// until its job finishes, so a run never executes on two workers.
type ProcessorQueue struct {
	run     RunFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu       sync.Mutex
	closed   bool
	inflight map[uuid.UUID]struct{}
	sendMu   sync.RWMutex

	// base parents every job context; Shutdown cancels it when its ctx ends
	// before the workers drain.
	base   context.Context
	cancel context.CancelFunc
}

// shutdownGrace bounds how long Shutdown waits for cancelled runs to record
// their failure.
const shutdownGrace = 5 * time.Second

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

func NewProcessorQueue(run RunFunc, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		run:      run,
		logger:   logger,
		workers:  4,
		timeout:  10 * time.Minute,
		ch:       make(chan Job, 256),
		inflight: make(map[uuid.UUID]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	defer q.release(job.RunID)

	if q.base.Err() != nil {
		// shutdown ran out of time; the run stays queued
		q.logger.Warn("queue.job.dropped", "worker_id", workerID, "run_id", job.RunID)
		return
	}
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()
	ctx = common.WithRunID(ctx, job.RunID)
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	start := time.Now()
	metrics.RunStarted()
	err := q.safeRun(ctx, job.RunID)
	metrics.RunDone()

	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"run_id", job.RunID,
			"trace_id", job.TraceID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	q.logger.Info("queue.job.ok",
		"worker_id", workerID,
		"run_id", job.RunID,
		"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// safeRun keeps a panicking run from killing its worker.
func (q *ProcessorQueue) safeRun(ctx context.Context, runID uuid.UUID) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
		}
	}()
	return q.run(ctx, runID)
}

func (q *ProcessorQueue) release(runID uuid.UUID) {
	q.mu.Lock()
	delete(q.inflight, runID)
	q.mu.Unlock()
}

// Enqueue blocks while the buffer is full. It fails with ErrQueueClosed after
// Shutdown and with ErrDuplicateRun while the same run is queued or executing.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "run_id", job.RunID)
		metrics.ObserveQueueRejected("closed")
		return ErrQueueClosed
	}
	if _, busy := q.inflight[job.RunID]; busy {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.duplicate", "run_id", job.RunID)
		metrics.ObserveQueueRejected("duplicate")
		return fmt.Errorf("%w: %s", ErrDuplicateRun, job.RunID)
	}
	q.inflight[job.RunID] = struct{}{}
	q.mu.Unlock()

	// sendMu keeps Shutdown from closing the channel under a blocked sender.
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.isClosed() {
		q.release(job.RunID)
		return ErrQueueClosed
	}

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.enqueue.backpressure", "run_id", job.RunID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.release(job.RunID)
			return ctx.Err()
		}
	}
	q.logger.Info("queue.enqueue.ok", "run_id", job.RunID, "trace_id", job.TraceID)
	return nil
}

func (q *ProcessorQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Shutdown stops accepting jobs and waits for queued ones to drain. When ctx
// ends first, running jobs are cancelled and given shutdownGrace to finish.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue.shutdown.drained")
		return
	case <-ctx.Done():
	}

	q.logger.Warn("queue.shutdown.cancelling")
	q.cancel()
	select {
	case <-done:
		q.logger.Info("queue.shutdown.cancelled")
	case <-time.After(shutdownGrace):
		q.logger.Error("queue.shutdown.abandoned")
	}
}
