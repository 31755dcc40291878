package gorawrstash

import (
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"google.golang.org/grpc"

	"github.com/Keksclan/goRawrStash/admin"
	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/durable"
	"github.com/Keksclan/goRawrStash/interceptors"
	"github.com/Keksclan/goRawrStash/internal/core"
	"github.com/Keksclan/goRawrStash/metrics"
	"github.com/Keksclan/goRawrStash/tracing"
)

// Server owns the process-wide tiered cache and the gRPC server that exposes
// the stash.Admin service for it.
//
// After construction the underlying gRPC server is available through
// [Server.GRPC] so that further services can be registered on it:
//
//	srv, err := gorawrstash.NewServer(gorawrstash.DefaultOptions()...)
//	pb.RegisterMyServiceServer(srv.GRPC(), &myImpl{})
type Server struct {
	grpcServer *grpc.Server
	cache      *cache.Tiered
	store      durable.Store
	registry   *prometheus.Registry
	log        zerolog.Logger
}

// NewServer creates the cache and the admin server from the supplied
// functional [Option] values. Middleware execution order is fixed (request
// ID, recovery, tracing, auth, rate limit, then user interceptors), not the
// order options are passed in.
//
// Example:
//
//	srv, err := gorawrstash.NewServer(
//		gorawrstash.WithStore(store),
//		gorawrstash.WithRecovery(),
//		gorawrstash.WithAuth(auth.BearerTokens(token)),
//		gorawrstash.WithRateLimitGlobal(50, 100),
//	)
func NewServer(opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	reg := cfg.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c, err := cache.New(cfg.store, cacheOptions(&cfg, metrics.New(reg))...)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	if err := metrics.RegisterEntries(reg, c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("register entry gauges: %w", err)
	}

	mw := buildMiddleware(&cfg)
	gs := grpc.NewServer(mw.ServerOptions()...)
	admin.Register(gs, admin.NewHandler(c, cfg.clock))

	return &Server{
		grpcServer: gs,
		cache:      c,
		store:      cfg.store,
		registry:   reg,
		log:        cfg.logger,
	}, nil
}

// cacheOptions translates server options into cache options. Options given
// through WithCacheOptions come last and override these.
func cacheOptions(cfg *config, m cache.Metrics) []cache.Option {
	opts := []cache.Option{
		cache.WithClock(cfg.clock),
		cache.WithLogger(cfg.logger),
		cache.WithMetrics(m),
	}
	if cfg.breaker != nil {
		bc := *cfg.breaker
		if bc.Clock == nil {
			bc.Clock = cfg.clock
		}
		opts = append(opts, cache.WithBreaker(breaker.New(bc)))
	}
	if cfg.retry != nil {
		opts = append(opts, cache.WithRetry(*cfg.retry))
	}
	if cfg.tracing != nil && cfg.tracing.TracerProvider != nil {
		opts = append(opts, cache.WithTracerProvider(cfg.tracing.TracerProvider))
	}
	return append(opts, cfg.cacheOpts...)
}

func buildMiddleware(cfg *config) *core.MiddlewareBuilder {
	mw := &cfg.middlewares
	if cfg.requestID {
		mw.Add(core.OrderRequestID, interceptors.RequestIDUnary(cfg.logger), interceptors.RequestIDStream(cfg.logger))
	}
	if cfg.recovery {
		mw.Add(core.OrderRecovery, interceptors.RecoveryUnary(), interceptors.RecoveryStream())
	}
	if cfg.tracing != nil {
		mw.Add(core.OrderTracing, tracing.UnaryServerInterceptor(cfg.tracing), tracing.StreamServerInterceptor(cfg.tracing))
	}
	if cfg.authFunc != nil {
		mw.Add(core.OrderAuth, interceptors.AuthUnary(cfg.authFunc), interceptors.AuthStream(cfg.authFunc))
	}
	if cfg.limiter != nil {
		ping := admin.FullMethod("Ping")
		mw.Add(core.OrderRateLimit, interceptors.RateLimitUnary(cfg.limiter, ping), interceptors.RateLimitStream(cfg.limiter, ping))
	}
	return mw
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Cache returns the server's cache. It is safe to share across goroutines.
func (s *Server) Cache() cache.Cache {
	return s.cache
}

// MetricsHandler returns an http.Handler that serves the server's Prometheus
// registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Serve accepts admin connections on lis until Close is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("admin server listening")
	return s.grpcServer.Serve(lis)
}

// Close drains in-flight RPCs, stops the cache janitor and closes the durable
// store if it implements io.Closer.
func (s *Server) Close() error {
	s.grpcServer.GracefulStop()
	err := s.cache.Close()
	if closer, ok := s.store.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	return err
}
