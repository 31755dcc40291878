package gorawrstash

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/Keksclan/goRawrStash/auth"
	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/durable"
	"github.com/Keksclan/goRawrStash/internal/core"
	"github.com/Keksclan/goRawrStash/ratelimit"
	"github.com/Keksclan/goRawrStash/retry"
	"github.com/Keksclan/goRawrStash/tracing"
)

// Option configures a Server.
type Option func(*config)

// WithStore sets the durable tier. Without it the cache is memory-only.
// [Server.Close] closes the store when it implements io.Closer.
func WithStore(s durable.Store) Option {
	return func(c *config) { c.store = s }
}

// WithCacheOptions passes options through to [cache.New]. They are applied
// after the server's own, so they win.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(c *config) { c.cacheOpts = append(c.cacheOpts, opts...) }
}

// WithClock replaces the wall clock for the cache and the admin service.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// WithLogger sets the base logger. Request-scoped loggers derive from it.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetricsRegistry registers cache metrics on reg instead of a private
// registry. [Server.MetricsHandler] then serves reg.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithDurableBreaker guards the durable tier with a circuit breaker so an
// unavailable store degrades the cache to memory-only.
func WithDurableBreaker(cfg breaker.Config) Option {
	return func(c *config) { c.breaker = &cfg }
}

// WithDurableRetry retries transient durable store errors.
func WithDurableRetry(cfg retry.Config) Option {
	return func(c *config) { c.retry = &cfg }
}

// WithRecovery turns handler panics into codes.Internal.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID assigns every admin RPC a request ID and a request-scoped
// logger.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithOpenTelemetry traces admin RPCs and WithCache calls. A nil
// TracerProvider in cfg selects the global one.
func WithOpenTelemetry(cfg tracing.Config) Option {
	return func(c *config) { c.tracing = &cfg }
}

// WithAuth authenticates admin RPCs with fn.
func WithAuth(fn auth.AuthFunc) Option {
	return func(c *config) { c.authFunc = fn }
}

// WithRateLimitGlobal limits admin RPCs to rps requests per second with the
// given burst. Ping is exempt.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) { c.limiter = ratelimit.NewLimiter(rps, burst) }
}

// WithUnaryInterceptor appends a unary server interceptor that runs after
// the built-in middleware.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) { c.middlewares.Add(core.OrderUser, i, nil) }
}

// WithStreamInterceptor appends a stream server interceptor that runs after
// the built-in middleware.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) { c.middlewares.Add(core.OrderUser, nil, i) }
}
