// Package background implements the bounded fan-out worker pool that
// runs Storage Fan-out and fire-and-forget priority publishes after
// the HTTP response has already been sent (REDESIGN FLAG "background
// fan-out after response" in spec.md 9). It replaces the unbounded
// go func() the source used with a fixed worker count and a bounded
// queue that fails closed instead of growing without limit.
package background

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of background work, threaded with a request id so
// every log line it emits can be correlated back to the originating
// HTTP request.
type Job struct {
	RequestID string
	Run       func(ctx context.Context)
}

// Pool runs Jobs on a fixed number of workers pulling from a bounded
// channel.
type Pool struct {
	jobs    chan Job
	workers int
	logger  *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Pool with the given worker count and queue depth.
func New(workers, queueDepth int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueDepth),
		workers: workers,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutines. ctx cancellation stops all
// workers after their current job completes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx)
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						p.logger.Error("background job panicked", "request_id", job.RequestID, "panic", r)
					}
				}()
				job.Run(ctx)
			}()
		}
	}
}

// TryEnqueue submits a job without blocking. It returns false if the
// queue is full, in which case the caller must log and drop the job
// rather than block the request path or spawn an unbounded goroutine.
func (p *Pool) TryEnqueue(job Job) bool {
	select {
	case <-p.stopCh:
		p.logger.Warn("background pool draining, dropping job", "request_id", job.RequestID)
		return false
	default:
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("background pool queue full, dropping job", "request_id", job.RequestID)
		return false
	}
}

// Drain stops accepting new jobs and waits for in-flight workers to
// finish, bounded by ctx.
func (p *Pool) Drain(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
