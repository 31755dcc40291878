// Package cache provides a two-level application cache: a bounded in-process
// memory tier in front of a durable key-value store.
//
// Reads check memory first and fall back to the durable tier, promoting live
// durable hits into memory with their original expiry. Writes always land in
// memory and, unless disabled per call, in the durable tier as well. Durable
// faults never surface to callers; the cache degrades to memory-only behaviour
// and logs instead.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyKey is returned when an operation is given an empty key.
var ErrEmptyKey = errors.New("cache: empty key")

// Cache is the public caching contract exposed to user logic.
type Cache interface {
	// Get retrieves a value by key. The boolean indicates a cache hit.
	Get(ctx context.Context, key string, opts ...CallOption) ([]byte, bool)

	// Set stores a value under key. Only an empty key is reported as an
	// error; durable tier failures are absorbed.
	Set(ctx context.Context, key string, val []byte, opts ...CallOption) error

	// Invalidate removes every key matching the glob pattern from both tiers.
	Invalidate(ctx context.Context, pattern string)

	// Clear drops every entry owned by the cache.
	Clear(ctx context.Context)

	// Stats reports raw entry counts per tier.
	Stats(ctx context.Context) Stats

	// WithCache returns the cached value for key. On a miss it calls fetcher,
	// stores the result and returns it. Fetcher errors are returned as is
	// and nothing is stored.
	WithCache(ctx context.Context, key string, fetcher Fetcher, opts ...CallOption) ([]byte, error)
}

// Fetcher produces the value for a cache miss.
type Fetcher func(ctx context.Context) ([]byte, error)

// Stats holds per-tier entry counts. Expired entries that have not been
// swept yet are included.
type Stats struct {
	Memory  int `json:"memory"`
	Durable int `json:"durable"`
}

// DefaultTTL is the lifetime given to entries written without a TTL option.
const DefaultTTL = 300 * time.Second

type callOptions struct {
	ttl     time.Duration
	durable bool
}

// CallOption tunes a single cache operation.
type CallOption func(*callOptions)

// TTL sets how long a written entry stays live. A non-positive TTL produces
// an entry that is already expired.
func TTL(d time.Duration) CallOption {
	return func(o *callOptions) { o.ttl = d }
}

// UseDurable controls whether the operation touches the durable tier.
// Writes are mirrored there and reads fall back to it by default.
func UseDurable(enabled bool) CallOption {
	return func(o *callOptions) { o.durable = enabled }
}

// MemoryOnly keeps the operation inside the memory tier.
func MemoryOnly() CallOption { return UseDurable(false) }

func (t *Tiered) callOptions(opts []CallOption) callOptions {
	co := callOptions{ttl: t.cfg.defaultTTL, durable: true}
	for _, o := range opts {
		o(&co)
	}
	return co
}
