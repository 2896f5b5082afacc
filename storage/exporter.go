package storage

import (
	"context"
	"sync"
	"time"

	"f95-engagement/models"
	"f95-engagement/utils"
)

const exportQueueSize = 32

type exportJob struct {
	writer PassWriter
	report *models.PassReport
}

// Exporter fans pass reports out to every configured PassWriter on a worker
// pool. Export never blocks: jobs go through a bounded queue and are dropped
// when it is full.
type Exporter struct {
	writers []PassWriter
	pool    *utils.WorkerPool
	timeout time.Duration
	logger  *utils.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	queue  chan exportJob
	done   chan struct{}
}

// NewExporter creates an Exporter writing to writers with at most
// concurrency writes in flight, each bounded by timeout.
func NewExporter(writers []PassWriter, concurrency int, timeout time.Duration, logger *utils.Logger) *Exporter {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Exporter{
		writers: writers,
		pool:    utils.NewWorkerPool(concurrency, 0),
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan exportJob, exportQueueSize),
		done:    make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// Export implements watcher.Exporter.
func (e *Exporter) Export(report *models.PassReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	for _, w := range e.writers {
		select {
		case e.queue <- exportJob{writer: w, report: report}:
		default:
			e.logger.Warn("[export] Queue full, dropped pass for %T", w)
		}
	}
}

// dispatch hands queued jobs to the pool; Submit blocks here rather than in
// Export.
func (e *Exporter) dispatch() {
	defer close(e.done)
	for job := range e.queue {
		job := job
		e.pool.Submit(func() { e.write(job) })
	}
	e.pool.Wait()
}

func (e *Exporter) write(job exportJob) {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	if err := job.writer.WritePass(ctx, job.report); err != nil {
		e.logger.Warn("[export] Pass write failed: %v", err)
		return
	}
	e.logger.Debug("[export] Wrote %d listings (%T)", len(job.report.Listings), job.writer)
}

// Close stops accepting reports and drains the queue. Writes still running
// after one timeout are cancelled. Every writer is closed.
func (e *Exporter) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
	case <-time.After(e.timeout):
		e.logger.Warn("[export] Writes still pending after %v, cancelling", e.timeout)
		e.cancel()
		<-e.done
	}
	e.cancel()

	var first error
	for _, w := range e.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
