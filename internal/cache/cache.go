// Package cache stores typeset results keyed by a digest of the request.
//
// Two backends exist: an in-process map bounded by entry count, and Redis
// for sharing results between processes.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unrecognized spec.
var ErrUnknownBackend = errors.New("unknown cache backend")

// DefaultMemoryEntries bounds the in-memory store when no size is given.
const DefaultMemoryEntries = 4096

// Store is a byte-valued key/value cache.
// A miss is reported as (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open builds a store from a spec:
//   - "memory" or "memory:N" for an in-process store holding N entries
//   - "redis://..." or "rediss://..." for a Redis store
func Open(ctx context.Context, spec string) (Store, error) {
	switch {
	case spec == "memory":
		return NewMemory(DefaultMemoryEntries), nil
	case strings.HasPrefix(spec, "memory:"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "memory:"))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: invalid memory size in %q", ErrUnknownBackend, spec)
		}
		return NewMemory(n), nil
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		return NewRedis(ctx, spec, RedisOptions{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, spec)
	}
}
