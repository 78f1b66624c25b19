// Package dispatch provides the fixed worker pool that drains the task
// queue fed by the datagram receive loop.
package dispatch

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Policy selects what happens when a task arrives while the queue is full.
type Policy string

const (
	// PolicyBlock makes Submit wait for queue space.
	PolicyBlock Policy = "block"
	// PolicyDropNewest discards the incoming task.
	PolicyDropNewest Policy = "drop-newest"
	// PolicyDropOldest discards the oldest queued task to make room.
	PolicyDropOldest Policy = "drop-oldest"
)

// ParsePolicy maps a config string onto a Policy, defaulting to drop-newest.
func ParsePolicy(s string) Policy {
	switch Policy(s) {
	case PolicyBlock, PolicyDropNewest, PolicyDropOldest:
		return Policy(s)
	default:
		return PolicyDropNewest
	}
}

// Task is one unit of work.
type Task func()

// Pool runs a fixed number of workers over a bounded FIFO queue. Tasks are
// FIFO within the queue; two tasks handed to different workers may still
// complete in either order.
type Pool struct {
	queue   chan Task
	policy  Policy
	logger  *zap.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex // serializes Submit against Stop's close
	stopped bool
	dropped atomic.Uint64
}

// NewPool creates the pool and starts its workers.
func NewPool(workers, queueSize int, policy Policy, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &Pool{
		queue:  make(chan Task, queueSize),
		policy: policy,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Info("worker pool started",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize),
		zap.String("policy", string(policy)))
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("task panicked",
						zap.Int("worker", id),
						zap.Any("recover", r))
				}
			}()
			task()
		}()
	}
}

// Submit enqueues a task according to the overflow policy. It reports
// whether the task was accepted; false means it was dropped (or the pool is
// stopped).
func (p *Pool) Submit(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.dropped.Add(1)
		return false
	}

	switch p.policy {
	case PolicyBlock:
		p.queue <- task
		return true
	case PolicyDropOldest:
		select {
		case p.queue <- task:
			return true
		default:
		}
		// Make room by discarding the head, then retry once.
		select {
		case <-p.queue:
			p.dropped.Add(1)
		default:
		}
		select {
		case p.queue <- task:
			return true
		default:
			p.dropped.Add(1)
			return false
		}
	default: // PolicyDropNewest
		select {
		case p.queue <- task:
			return true
		default:
			p.dropped.Add(1)
			return false
		}
	}
}

// Stop drains in-flight and queued tasks, then waits for all workers to
// exit. Further Submit calls are rejected.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.Uint64("dropped", p.dropped.Load()))
}

// QueueDepth returns the number of queued, unstarted tasks.
func (p *Pool) QueueDepth() int { return len(p.queue) }

// Dropped returns how many tasks overflow has discarded so far.
func (p *Pool) Dropped() uint64 { return p.dropped.Load() }
