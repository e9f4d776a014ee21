package mathpage

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/alnah/go-mathpage/internal/markdown"
)

// Input is one page to convert.
type Input struct {
	// HTML is the page source; Markdown when Page.Markdown is set.
	HTML string

	Page    *PageOptions
	Typeset *TypesetOptions
	Hooks   Hooks
}

// Converter runs page conversion jobs against a pool of engines.
// Create with NewConverter, run jobs with Submit or Convert, and Close when done.
type Converter struct {
	cfg      converterConfig
	pool     *EnginePool
	registry *Registry
	logger   *log.Logger
	markdown *markdown.Converter

	seq     atomic.Uint64
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// NewConverter creates a Converter. Without WithEngine or WithEngineFactory,
// jobs use MathJax engines in headless Chrome, created on demand.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		cfg: converterConfig{
			concurrency: DefaultConcurrency,
			timeout:     defaultTimeout,
		},
		markdown: markdown.NewConverter(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.registry = c.cfg.registry
	if c.registry == nil {
		c.registry = defaultRegistry
	}
	c.logger = c.cfg.logger
	if c.logger == nil {
		c.logger = defaultLogger()
	}

	switch {
	case c.cfg.engine != nil:
		c.pool = newSharedPool(c.cfg.engine)
	default:
		factory := c.cfg.factory
		if factory == nil {
			factory = MathJaxFactory(MathJaxOptions{})
		}
		c.pool = NewEnginePool(ResolvePoolSize(c.cfg.poolSize), factory)
	}

	return c
}

// Submit starts converting a page and returns immediately. cb is called
// exactly once, from another goroutine, with the serialized page or an error.
// Per-formula failures are logged and never reach cb.
func (c *Converter) Submit(ctx context.Context, in Input, cb Callback) *Job {
	job := newJob(c, c.seq.Add(1), in, cb)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		go job.deliver("", ErrConverterClosed)
		return job
	}
	c.running.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.running.Done()

		ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
		job.run(ctx)
	}()
	return job
}

// Convert runs one job and waits for its output.
func (c *Converter) Convert(ctx context.Context, in Input) (string, error) {
	var (
		out string
		err error
	)
	job := c.Submit(ctx, in, func(o string, e error) {
		out, err = o, e
	})
	<-job.Done()
	return out, err
}

// Registry returns the output registry jobs resolve handlers from.
func (c *Converter) Registry() *Registry {
	return c.registry
}

// Close waits for running jobs, then closes pooled engines and the cache.
// Engines given through WithEngine are left open.
func (c *Converter) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.running.Wait()

	var errs []error
	if err := c.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.cfg.cache != nil {
		if err := c.cfg.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
