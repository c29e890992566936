package clip

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by Submit when the job queue is saturated.
var ErrQueueFull = errors.New("worker queue full")

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a bounded worker pool shared across all sessions. Back-pressure is
// implicit: a fixed worker count plus a fixed queue depth, with Submit
// failing fast instead of blocking the caller.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines servicing a queue of queueDepth jobs.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}

	p := &Pool{jobs: make(chan func(), queueDepth)}
	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit enqueues a job without blocking. A full queue is the caller's signal
// that the system is saturated; the job is not retried here.
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued work to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
