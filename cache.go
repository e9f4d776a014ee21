package mathpage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/alnah/go-mathpage/internal/cache"
)

// Cache stores engine results between jobs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// OpenCache opens a result cache from a spec: "memory", "memory:N" or a
// redis:// URL.
func OpenCache(ctx context.Context, spec string) (Cache, error) {
	return cache.Open(ctx, spec)
}

// NewMemoryCache returns an in-process cache holding at most n results.
func NewMemoryCache(n int) Cache {
	return cache.NewMemory(n)
}

var _ Engine = (*cachingEngine)(nil)

// cachingEngine memoizes an engine's results. Stylesheet-only calls and
// global-cache requests depend on engine state and always go through.
// Store failures are logged and treated as misses.
type cachingEngine struct {
	next   Engine
	store  Cache
	logger *log.Logger
}

func newCachingEngine(next Engine, store Cache, logger *log.Logger) *cachingEngine {
	return &cachingEngine{next: next, store: store, logger: logger}
}

func (c *cachingEngine) Typeset(ctx context.Context, req Request) (*Result, error) {
	if req.Math == "" || req.UseGlobalCache {
		return c.next.Typeset(ctx, req)
	}

	key := requestKey(req)
	if data, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Printf("[cache] [status=error] get %s: %v", key[:12], err)
	} else if ok {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
	}

	res, err := c.next.Typeset(ctx, req)
	if err != nil || res == nil {
		return res, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := c.store.Set(ctx, key, data); err != nil {
			c.logger.Printf("[cache] [status=error] set %s: %v", key[:12], err)
		}
	}
	return res, nil
}

// Close closes the wrapped engine, not the store.
func (c *cachingEngine) Close() error {
	return c.next.Close()
}

// requestKey digests everything that shapes the output. The timeout does not.
func requestKey(req Request) string {
	req.Timeout = 0
	data, _ := json.Marshal(req)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
