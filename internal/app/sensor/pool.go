package sensor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueFull is returned by Submit when a bounded pending queue is full.
	ErrQueueFull = errors.New("pending queue is full")
	// ErrPoolNotStarted is returned by Submit before Start.
	ErrPoolNotStarted = errors.New("pool not started")
	// ErrPoolStopped is returned by Submit after Shutdown.
	ErrPoolStopped = errors.New("pool stopped")
	// ErrPoolAlreadyStarted is returned by a second Start.
	ErrPoolAlreadyStarted = errors.New("pool already started")
)

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Active    int   `json:"active"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Rejected  int64 `json:"rejected"`
}

// Pool runs a fixed number of workers over a FIFO of pending items. Submit
// never blocks. The queue is unbounded unless maxQueued is positive.
//
// Shutdown does not drain: in-flight items see their context cancelled and
// items still queued are handed to the release function instead of process.
type Pool[T any] struct {
	workers   int
	maxQueued int
	process   func(context.Context, T)
	release   func(T)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	active    atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
}

// NewPool creates a pool of workers goroutines. release may be nil.
func NewPool[T any](workers, maxQueued int, process func(context.Context, T), release func(T)) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if maxQueued < 0 {
		maxQueued = 0
	}
	if process == nil {
		panic("sensor: pool requires a process function")
	}
	if release == nil {
		release = func(T) {}
	}

	p := &Pool[T]{
		workers:   workers,
		maxQueued: maxQueued,
		process:   process,
		release:   release,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. Cancelling ctx has the same effect as Shutdown
// except that it does not wait for the workers.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	context.AfterFunc(p.ctx, p.stop)

	return nil
}

// Submit enqueues item. On error the caller still owns item.
func (p *Pool[T]) Submit(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case !p.started:
		return ErrPoolNotStarted
	case p.stopped:
		return ErrPoolStopped
	case p.maxQueued > 0 && len(p.queue) >= p.maxQueued:
		p.rejected.Add(1)
		return ErrQueueFull
	}

	p.queue = append(p.queue, item)
	p.submitted.Add(1)
	p.cond.Signal()
	return nil
}

// Shutdown cancels in-flight work, releases queued items, and waits for
// every worker to return. It is safe to call more than once.
func (p *Pool[T]) Shutdown() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}

	p.cancel()
	p.stop()
	p.wg.Wait()
}

// stop marks the pool stopped, wakes idle workers and releases whatever was
// still queued. Only the first call does anything.
func (p *Pool[T]) stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	pending := p.queue
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	for _, item := range pending {
		p.release(item)
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		item := p.queue[0]
		var zero T
		p.queue[0] = zero
		p.queue = p.queue[1:]
		p.active.Add(1)
		p.mu.Unlock()

		p.process(p.ctx, item)

		p.active.Add(-1)
		p.completed.Add(1)
	}
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()

	return PoolStats{
		Workers:   p.workers,
		Queued:    queued,
		Active:    int(p.active.Load()),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
