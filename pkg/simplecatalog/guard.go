package simplecatalog

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Guard serializes every index read-modify-write in the process. There is a
// single Guard for all types: the backend offers no compare-and-swap, so a
// global lock is what prevents lost updates between racing writers.
//
// All index writes are therefore serialized across types. Per-type guards or
// conditional writes on a backend generation token would lift that ceiling.
type Guard struct {
	sem     *semaphore.Weighted
	metrics *Metrics
}

// NewGuard creates an unlocked Guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the guard is held or ctx is done.
func (g *Guard) Lock(ctx context.Context) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.metrics.observeGuardWait(time.Since(start))
	return nil
}

// Unlock releases the guard.
func (g *Guard) Unlock() {
	g.sem.Release(1)
}

// TryLock acquires the guard without blocking.
func (g *Guard) TryLock() bool {
	return g.sem.TryAcquire(1)
}
