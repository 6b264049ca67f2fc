package bridge

import (
	"context"
	"sync"
)

// generation is a context-aware counter that waiters can block on until it
// moves past a value they observed earlier.
type generation struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    uint64
}

func newGeneration() *generation {
	g := &generation{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Load returns the current value.
func (g *generation) Load() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Advance increments the counter and wakes all waiters.
func (g *generation) Advance() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	g.cond.Broadcast()
}

// WaitPast blocks until the counter exceeds since or the context is
// cancelled. Returns nil on success, or the context error if cancelled.
func (g *generation) WaitPast(ctx context.Context, since uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A goroutine broadcasts on cancellation so blocked waiters wake up and
	// can return the context error.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.cond.Broadcast()
			g.mu.Unlock()
		case <-done:
		}
	}()

	for g.n <= since {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	return nil
}
