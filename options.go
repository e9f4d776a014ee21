package mathpage

import (
	"io"
	"log"
	"os"
	"time"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	engine      Engine
	factory     EngineFactory
	poolSize    int
	concurrency int
	timeout     time.Duration
	cache       Cache
	logger      *log.Logger
	registry    *Registry
}

// Defaults applied by NewConverter.
const (
	// DefaultConcurrency bounds in-flight engine calls per job.
	DefaultConcurrency = 16

	// defaultTimeout bounds a whole job, finishing pass included.
	defaultTimeout = 5 * time.Minute

	// logPrefix tags every line of the default logger.
	logPrefix = "mathpage: "
)

// NewLogger returns a logger in the package's format writing to w.
// A nil w discards output.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = io.Discard
	}
	return log.New(w, logPrefix, log.LstdFlags)
}

func defaultLogger() *log.Logger {
	return NewLogger(os.Stderr)
}

// WithEngine makes every job share e. Jobs queue for it one at a time.
// The converter does not close e.
// Panics if e is nil (programmer error).
func WithEngine(e Engine) Option {
	if e == nil {
		panic("mathpage: WithEngine engine must not be nil")
	}
	return func(c *Converter) {
		c.cfg.engine = e
	}
}

// WithEngineFactory sets how pooled engines are created.
// Ignored when WithEngine is also given.
func WithEngineFactory(f EngineFactory) Option {
	if f == nil {
		panic("mathpage: WithEngineFactory factory must not be nil")
	}
	return func(c *Converter) {
		c.cfg.factory = f
	}
}

// WithPoolSize sets how many engines may exist at once, which is also how
// many jobs run concurrently. Values below 1 select ResolvePoolSize(0).
func WithPoolSize(n int) Option {
	return func(c *Converter) {
		c.cfg.poolSize = n
	}
}

// WithConcurrency bounds the number of in-flight engine calls per job.
// Panics if n < 1.
func WithConcurrency(n int) Option {
	if n < 1 {
		panic("mathpage: WithConcurrency must be at least 1")
	}
	return func(c *Converter) {
		c.cfg.concurrency = n
	}
}

// WithTimeout bounds each job, from parsing to serialization.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mathpage: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithCache memoizes engine results in store.
func WithCache(store Cache) Option {
	return func(c *Converter) {
		c.cfg.cache = store
	}
}

// WithLogger sets where per-formula errors and warnings are written.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		c.cfg.logger = l
	}
}

// WithRegistry gives the converter its own output registry instead of the
// process-wide one.
func WithRegistry(r *Registry) Option {
	return func(c *Converter) {
		c.cfg.registry = r
	}
}
