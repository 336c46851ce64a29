// Package worker runs keyword jobs from the queue through the search pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vqs/internal/adapters/mq/queue"
	"github.com/okian/vqs/internal/domain/types"
	"github.com/okian/vqs/pkg/logger"
	"github.com/okian/vqs/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Searcher retrieves, scores and ranks the candidates of one keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) types.Result
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its context ends or it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for in-process queues.
type InMemoryWorker struct {
	queue    Queue
	searcher Searcher
	name     string

	// onJob is notified after each job; the pool uses it for throughput.
	onJob func(active bool)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, searcher Searcher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		searcher: searcher,
		name:     "worker",
		onJob:    func(bool) {},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.onJob(true)
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("job_id", job.ID), logger.Error(err))
			}
			w.onJob(false)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// process runs one job and always delivers a reply when one is expected.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (err error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	result := types.Failed(job.Keyword, "job not processed")

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "panic")
			result = types.Failed(job.Keyword, fmt.Sprintf("internal error: %v", r))
			err = fmt.Errorf("search panicked for %q: %v", job.Keyword, r)
		}
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		w.reply(ctx, job, result)
	}()

	result = w.searcher.Search(ctx, job.Keyword, job.Limit)
	if !result.Success {
		metrics.RecordWorkerError()
		w.logger.Debug(ctx, "keyword produced no ranking",
			logger.String("job_id", job.ID),
			logger.String("keyword", job.Keyword),
			logger.String("message", result.Message),
		)
	}
	return nil
}

func (w *InMemoryWorker) reply(ctx context.Context, job queue.Job, result types.Result) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	if job.Reply == nil {
		return
	}
	r := queue.Reply{JobID: job.ID, Index: job.Index, Result: result}
	select {
	case job.Reply <- r:
		return
	default:
	}
	select {
	case job.Reply <- r:
	case <-ctx.Done():
		w.logger.Warn(ctx, "dropping reply for cancelled job", logger.String("job_id", job.ID))
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once

	started           atomic.Bool
	processed         atomic.Int64
	active            atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses the
// number of CPUs.
func NewPool(workerCount int, q Queue, searcher Searcher, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Discard()
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            log.Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, searcher,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
			withJobHook(pool.trackJob),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	metrics.UpdateWorkerJobsPerSecond(0)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns the number of jobs completed since the pool started.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

func (p *Pool) trackJob(active bool) {
	if active {
		p.active.Add(1)
	} else {
		p.active.Add(-1)
		p.processed.Add(1)
	}
	n := int(p.active.Load())
	metrics.UpdateWorkerActiveCount(n)
	metrics.UpdateWorkerIdleCount(len(p.workers) - n)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			total := p.processed.Load()
			if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
				metrics.UpdateWorkerJobsPerSecond(float64(total-last) / elapsed)
			}
			last = total
			p.lastProcessedTime = now
		}
	}
}

// Shutdown closes the queue and lets workers drain what is left in it. Workers
// still busy when ctx or the pool timeout expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	closer, closable := p.queue.(interface{ Close() error })
	if closable {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		if !closable {
			w.stop()
		}
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			w.stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = true
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
