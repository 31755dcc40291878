package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/durable"
	"github.com/Keksclan/goRawrStash/pattern"
	"github.com/Keksclan/goRawrStash/ratelimit"
)

const tracerName = "github.com/Keksclan/goRawrStash/cache"

// Tiered combines a bounded memory tier with an optional durable store.
// Reads check memory first, then the durable store. Writes populate both
// tiers. It is safe for concurrent use; construct one per process and share
// it.
type Tiered struct {
	cfg     config
	mem     memoryTier
	durable *guard // nil for a memory-only cache
	codec   *codec
	clock   clock.Clock
	log     zerolog.Logger
	metrics Metrics
	tracer  trace.Tracer
	reclaim *ratelimit.Limiter
	fills   singleflight.Group

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ Cache = (*Tiered)(nil)

// New creates a tiered cache in front of store. A nil store yields a
// memory-only cache. The janitor starts immediately unless disabled with
// WithJanitorInterval(0); call Close to stop it.
func New(store durable.Store, opts ...Option) (*Tiered, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxEntries < 1 {
		cfg.maxEntries = DefaultMaxEntries
	}
	if cfg.reclaim == nil {
		cfg.reclaim = ratelimit.NewEvery(DefaultReclaimInterval, 1)
	}
	if cfg.retry.Clock == nil {
		cfg.retry.Clock = cfg.clock
	}

	t := &Tiered{
		cfg:     cfg,
		clock:   cfg.clock,
		log:     cfg.logger.With().Str("component", "cache").Logger(),
		metrics: cfg.metrics,
		tracer:  cfg.tracerProvider.Tracer(tracerName),
		reclaim: cfg.reclaim,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	mem, err := newMemoryTier(cfg.policy, cfg.maxEntries, t.metrics.Eviction)
	if err != nil {
		return nil, err
	}
	t.mem = mem

	if t.codec, err = newCodec(cfg.compressThreshold); err != nil {
		mem.close()
		return nil, err
	}
	if store != nil {
		t.durable = newGuard(store, cfg.breaker, cfg.retry, t.log)
	}

	if cfg.janitorInterval > 0 {
		// Created here so the ticker exists before New returns.
		go t.janitor(t.clock.Ticker(cfg.janitorInterval))
	} else {
		close(t.done)
	}
	return t, nil
}

// Get returns the value for key. A live memory entry is returned directly.
// Otherwise, unless disabled with MemoryOnly, the durable store is consulted
// and a live record is promoted into memory keeping its original expiry.
// Expired and corrupt durable records are deleted on the way.
func (t *Tiered) Get(ctx context.Context, key string, opts ...CallOption) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	co := t.callOptions(opts)
	now := t.clock.Now()

	e, ok, expired := t.mem.lookup(key, now)
	if ok {
		t.metrics.Hit(TierMemory)
		return bytes.Clone(e.Data), true
	}
	if expired {
		t.metrics.Expiration(TierMemory)
	}

	if !co.durable || t.durable == nil {
		t.metrics.Miss()
		return nil, false
	}

	e, ok = t.readDurable(ctx, key, now)
	if !ok {
		t.metrics.Miss()
		return nil, false
	}
	t.mem.store(key, e)
	t.metrics.Hit(TierDurable)
	t.metrics.Promotion()
	return bytes.Clone(e.Data), true
}

func (t *Tiered) readDurable(ctx context.Context, key string, now time.Time) (Entry, bool) {
	nk := t.cfg.namespace + key
	raw, found, err := t.durable.get(ctx, nk)
	if err != nil {
		t.durableFailure(err, "get", key)
		return Entry{}, false
	}
	if !found {
		return Entry{}, false
	}

	e, err := t.codec.decode(raw)
	if err != nil {
		t.log.Debug().Err(err).Str("key", key).Msg("dropping corrupt durable record")
		t.removeDurable(ctx, nk)
		return Entry{}, false
	}
	if !e.Live(now) {
		t.metrics.Expiration(TierDurable)
		t.removeDurable(ctx, nk)
		return Entry{}, false
	}
	return e, true
}

// Set stores val under key. The memory tier is always written; when it is
// full and key is new, one entry is evicted first. The durable write, unless
// disabled with MemoryOnly, is best effort: failures are logged and a quota
// error triggers a throttled reclaim of expired durable records.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, opts ...CallOption) error {
	if key == "" {
		return ErrEmptyKey
	}
	co := t.callOptions(opts)
	now := t.clock.Now()

	e := Entry{Data: bytes.Clone(val), CreatedAt: now, ExpiresAt: now.Add(co.ttl)}
	t.mem.store(key, e)

	if co.durable && t.durable != nil {
		t.writeDurable(ctx, key, e)
	}
	return nil
}

func (t *Tiered) writeDurable(ctx context.Context, key string, e Entry) {
	raw, err := t.codec.encode(e)
	if err != nil {
		t.durableFailure(err, "encode", key)
		return
	}
	err = t.durable.set(ctx, t.cfg.namespace+key, raw)
	if err == nil {
		return
	}
	t.durableFailure(err, "set", key)
	if durable.IsQuotaExceeded(err) && t.reclaim.Allow() {
		n := t.reclaimDurable(ctx)
		t.log.Debug().Int("removed", n).Msg("durable reclaim after quota error")
	}
}

// Invalidate removes every key matching pattern from both tiers. '*' matches
// any run of characters and a wildcard pattern may match anywhere in a key.
// A pattern without '*' removes exactly that key.
// Durable keys outside the namespace are never touched.
func (t *Tiered) Invalidate(ctx context.Context, glob string) {
	m := pattern.Compile(glob)

	if key, ok := m.Literal(); ok {
		t.mem.remove(key)
		if t.durable != nil && key != "" {
			t.removeDurable(ctx, t.cfg.namespace+key)
		}
		return
	}

	t.mem.removeMatching(m.Match)
	for _, key := range t.durableKeys(ctx) {
		if m.Match(key) {
			t.removeDurable(ctx, t.cfg.namespace+key)
		}
	}
}

// Clear drops every memory entry and every durable record in the namespace.
func (t *Tiered) Clear(ctx context.Context) {
	t.mem.clear()
	for _, key := range t.durableKeys(ctx) {
		t.removeDurable(ctx, t.cfg.namespace+key)
	}
}

// Stats reports how many entries each tier holds.
func (t *Tiered) Stats(ctx context.Context) Stats {
	s := Stats{Memory: t.mem.len()}
	if t.durable == nil {
		return s
	}
	if t.cfg.namespace == "" {
		n, err := t.durable.len(ctx)
		if err != nil {
			t.durableFailure(err, "len", "")
		}
		s.Durable = n
		return s
	}
	s.Durable = len(t.durableKeys(ctx))
	return s
}

// WithCache returns the cached value for key, calling fetcher on a miss and
// storing its result. Fetcher errors are returned unchanged and nothing is
// stored. A result that arrives after ctx is done is returned but not stored.
//
// Concurrent misses for one key each call fetcher unless the cache was built
// with WithCoalescedFills.
func (t *Tiered) WithCache(ctx context.Context, key string, fetcher Fetcher, opts ...CallOption) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	ctx, span := t.tracer.Start(ctx, "cache.WithCache",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if v, ok := t.Get(ctx, key, opts...); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var (
		v   []byte
		err error
	)
	if t.cfg.coalesce {
		var shared bool
		var res any
		res, err, shared = t.fills.Do(key, func() (any, error) {
			return t.fill(ctx, key, fetcher, opts)
		})
		span.SetAttributes(attribute.Bool("cache.shared", shared))
		if err == nil {
			v = bytes.Clone(res.([]byte))
		}
	} else {
		v, err = t.fill(ctx, key, fetcher, opts)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return v, nil
}

func (t *Tiered) fill(ctx context.Context, key string, fetcher Fetcher, opts []CallOption) ([]byte, error) {
	v, err := fetcher(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		t.log.Debug().Str("key", key).Msg("fetch finished after cancellation, not caching")
		return v, nil
	}
	_ = t.Set(ctx, key, v, opts...)
	return v, nil
}

// Close stops the janitor and releases the memory tier. The durable store is
// left open; it belongs to the caller.
func (t *Tiered) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
		<-t.done
		t.mem.close()
		t.codec.close()
	})
	return nil
}

// durableKeys lists un-prefixed keys in the namespace.
func (t *Tiered) durableKeys(ctx context.Context) []string {
	if t.durable == nil {
		return nil
	}
	all, err := t.durable.keys(ctx)
	if err != nil {
		t.durableFailure(err, "keys", "")
		return nil
	}
	keys := all[:0]
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, t.cfg.namespace); ok {
			keys = append(keys, rest)
		}
	}
	return keys
}

func (t *Tiered) removeDurable(ctx context.Context, namespacedKey string) {
	if err := t.durable.remove(ctx, namespacedKey); err != nil {
		t.durableFailure(err, "remove", strings.TrimPrefix(namespacedKey, t.cfg.namespace))
	}
}

// reclaimDurable deletes expired and corrupt records in the namespace and
// returns how many were removed.
func (t *Tiered) reclaimDurable(ctx context.Context) int {
	now := t.clock.Now()
	n := 0
	for _, key := range t.durableKeys(ctx) {
		nk := t.cfg.namespace + key
		raw, found, err := t.durable.get(ctx, nk)
		if err != nil || !found {
			continue
		}
		if e, err := t.codec.decode(raw); err == nil && e.Live(now) {
			continue
		}
		if err := t.durable.remove(ctx, nk); err == nil {
			n++
		}
	}
	return n
}

func (t *Tiered) durableFailure(err error, op, key string) {
	// The guard already logged the trip.
	if errors.Is(err, breaker.ErrOpen) || errors.Is(err, context.Canceled) {
		return
	}
	t.metrics.DurableFailure(op)
	ev := t.log.Warn().Err(err).Str("op", op)
	if key != "" {
		ev = ev.Str("key", key)
	}
	ev.Msg("durable tier operation failed")
}
