package simplecatalog

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultIOWorkers bounds concurrent backend calls.
const DefaultIOWorkers = 20

// IOPool bounds the number of blocking backend calls in flight, so a slow
// backend holds at most that many goroutines inside the storage client.
type IOPool struct {
	size    int64
	sem     *semaphore.Weighted
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
}

// NewIOPool creates a pool allowing size concurrent calls.
func NewIOPool(size int) *IOPool {
	if size <= 0 {
		size = DefaultIOWorkers
	}
	return &IOPool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Do runs fn once a slot is free. It returns ErrPoolClosed after Close and
// ctx.Err() if ctx ends while waiting.
func (p *IOPool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	p.metrics.ioStarted()
	defer p.metrics.ioFinished()
	return fn(ctx)
}

// Size returns the pool bound.
func (p *IOPool) Size() int {
	return int(p.size)
}

// Close stops accepting calls and waits for in-flight calls to finish.
func (p *IOPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Holding every slot means nothing is in flight.
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return err
	}
	p.sem.Release(p.size)
	return nil
}
