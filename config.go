package gorawrstash

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrStash/auth"
	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/durable"
	"github.com/Keksclan/goRawrStash/internal/core"
	"github.com/Keksclan/goRawrStash/ratelimit"
	"github.com/Keksclan/goRawrStash/retry"
	"github.com/Keksclan/goRawrStash/tracing"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	store     durable.Store
	cacheOpts []cache.Option
	clock     clock.Clock
	logger    zerolog.Logger
	registry  *prometheus.Registry

	breaker *breaker.Config
	retry   *retry.Config

	recovery  bool
	requestID bool
	tracing   *tracing.Config
	authFunc  auth.AuthFunc
	limiter   *ratelimit.Limiter

	// user interceptors, always after the built-in ones
	middlewares core.MiddlewareBuilder
}

func defaultConfig() config {
	return config{
		clock:  clock.New(),
		logger: zerolog.Nop(),
	}
}
