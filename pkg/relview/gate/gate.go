// Package gate provides the bounded-concurrency primitive for the
// download pipeline: a counting semaphore with strict FIFO admission and
// a drain wait that blocks until every held slot is released.
package gate

import (
	"context"
	"sync"
)

// Gate bounds how many transfers run at once. Acquire admits callers in
// request order, so a burst of scheduled downloads starts in the order it
// was queued. All methods are safe for concurrent use.
//
// Waiters hold no slot until granted; a granted waiter inherits the
// releasing caller's slot, so the in-use count never exceeds the limit.
type Gate struct {
	mu      sync.Mutex
	limit   int
	active  int
	waiters []chan struct{}
	drain   chan struct{}
}

// New returns a gate admitting at most limit concurrent holders. A limit
// below 1 is treated as 1.
func New(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{limit: limit}
}

// Limit returns the gate's capacity.
func (g *Gate) Limit() int {
	return g.limit
}

// InUse returns the number of currently held slots.
func (g *Gate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Acquire blocks until a slot is free or ctx is done. Waiters are served
// strictly first-come first-served. On cancellation the caller holds no
// slot and needs no Release.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	// Waiters only exist while the gate is full, so a free slot means
	// nobody is queued ahead of us.
	if g.active < g.limit {
		g.active++
		g.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	g.waiters = append(g.waiters, ready)
	g.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == ready {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		// The slot was granted between cancellation and locking.
		// Hand it back so the count stays accurate.
		g.releaseLocked()
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a held slot, handing it to the oldest waiter if any.
// Releasing without a held slot panics.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

func (g *Gate) releaseLocked() {
	if g.active == 0 {
		panic("gate: Release without a held slot")
	}
	if len(g.waiters) > 0 {
		ready := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ready)
		return
	}
	g.active--
	if g.active == 0 && g.drain != nil {
		close(g.drain)
		g.drain = nil
	}
}

// Wait blocks until every held slot has been released or ctx is done.
// It returns immediately when the gate is idle.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if g.active == 0 {
		g.mu.Unlock()
		return nil
	}
	if g.drain == nil {
		g.drain = make(chan struct{})
	}
	done := g.drain
	g.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
