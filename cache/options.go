package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/ratelimit"
	"github.com/Keksclan/goRawrStash/retry"
)

const (
	// DefaultNamespace prefixes every key the cache writes to the durable store.
	DefaultNamespace = "stash_"
	// DefaultMaxEntries bounds the memory tier.
	DefaultMaxEntries = 100
	// DefaultJanitorInterval is how often expired memory entries are swept.
	DefaultJanitorInterval = time.Minute
	// DefaultReclaimInterval spaces out durable reclaims after quota errors.
	DefaultReclaimInterval = 10 * time.Second
)

type config struct {
	namespace         string
	maxEntries        int
	policy            EvictionPolicy
	defaultTTL        time.Duration
	janitorInterval   time.Duration
	durableSweep      bool
	clock             clock.Clock
	logger            zerolog.Logger
	metrics           Metrics
	tracerProvider    trace.TracerProvider
	breaker           *breaker.Breaker
	retry             retry.Config
	reclaim           *ratelimit.Limiter
	compressThreshold int
	coalesce          bool
}

func defaultConfig() config {
	return config{
		namespace:         DefaultNamespace,
		maxEntries:        DefaultMaxEntries,
		policy:            FIFO,
		defaultTTL:        DefaultTTL,
		janitorInterval:   DefaultJanitorInterval,
		clock:             clock.New(),
		logger:            zerolog.Nop(),
		metrics:           NoopMetrics{},
		tracerProvider:    otel.GetTracerProvider(),
		retry:             retry.Config{MaxAttempts: 1},
		compressThreshold: DefaultCompressThreshold,
	}
}

// Option configures a Tiered cache.
type Option func(*config)

// WithNamespace sets the durable key prefix. An empty namespace makes the
// cache own the whole durable store.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithMaxEntries bounds the memory tier. Values below one fall back to
// DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(c *config) { c.maxEntries = n }
}

// WithEvictionPolicy picks the memory tier implementation.
func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithDefaultTTL sets the TTL used when a write carries no TTL option.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithJanitorInterval sets the sweep period. Zero disables the janitor;
// Sweep can still be called directly.
func WithJanitorInterval(d time.Duration) Option {
	return func(c *config) { c.janitorInterval = d }
}

// WithDurableSweep makes each janitor pass also delete expired and corrupt
// records from the durable store.
func WithDurableSweep(enabled bool) Option {
	return func(c *config) { c.durableSweep = enabled }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// WithLogger sets the logger used for durable faults and janitor reports.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithTracerProvider sets the provider for read-through spans. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithBreaker guards the durable store with b. While b is open the cache
// serves from memory only.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *config) { c.breaker = b }
}

// WithRetry retries transient durable store errors. A nil Retryable in cfg
// is replaced by durable.IsTransient.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) { c.retry = cfg }
}

// WithReclaimLimit throttles the durable reclaim that follows a quota error.
func WithReclaimLimit(l *ratelimit.Limiter) Option {
	return func(c *config) { c.reclaim = l }
}

// WithCompression sets the record size above which durable records are zstd
// compressed. Zero or less disables compression; compressed records are
// still read.
func WithCompression(threshold int) Option {
	return func(c *config) { c.compressThreshold = threshold }
}

// WithCoalescedFills makes concurrent WithCache misses for the same key share
// one fetcher call.
func WithCoalescedFills(enabled bool) Option {
	return func(c *config) { c.coalesce = enabled }
}
