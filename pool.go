package mathpage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one engine is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser-backed engines to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// EnginePool leases engines to jobs. A job holds its lease from dispatch to
// the end of its finishing pass; overlapping jobs queue for a free engine.
// Engines are created lazily on first acquire.
type EnginePool struct {
	size    int
	factory EngineFactory
	engines []Engine
	sem     chan Engine
	mu      sync.Mutex
	created int
	closed  bool
}

// NewEnginePool creates a pool with capacity for n engines built by factory.
func NewEnginePool(n int, factory EngineFactory) *EnginePool {
	if n < 1 {
		n = 1
	}

	return &EnginePool{
		size:    n,
		factory: factory,
		engines: make([]Engine, 0, n),
		sem:     make(chan Engine, n),
	}
}

// newSharedPool wraps a single caller-owned engine. The pool never closes it.
func newSharedPool(e Engine) *EnginePool {
	p := &EnginePool{
		size:    1,
		created: 1,
		sem:     make(chan Engine, 1),
	}
	p.sem <- e
	return p
}

// Acquire leases an engine, creating one if capacity allows.
// Blocks until an engine is released or ctx is done.
func (p *EnginePool) Acquire(ctx context.Context) (Engine, error) {
	// Try to get an idle engine (non-blocking)
	select {
	case e, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return e, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new engine outside the lock
		e, err := p.create()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, err
		}

		p.mu.Lock()
		p.engines = append(p.engines, e)
		p.mu.Unlock()

		return e, nil
	}
	p.mu.Unlock()

	// All engines created, wait for one to be released
	select {
	case e, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *EnginePool) create() (Engine, error) {
	if p.factory == nil {
		return nil, ErrNilEngine
	}
	e, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if e == nil {
		return nil, ErrNilEngine
	}
	return e, nil
}

// Release returns an engine to the pool. Releasing after Close is a no-op.
// The lock is held while sending; the buffer always has room for a leased engine.
func (p *EnginePool) Release(e Engine) {
	if e == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- e
}

// Close shuts down every engine the pool created.
// Returns an aggregated error if several engines fail to close.
func (p *EnginePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	engines := p.engines
	p.mu.Unlock()

	var errs []error
	for _, e := range engines {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *EnginePool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
