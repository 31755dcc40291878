package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/durable"
	"github.com/Keksclan/goRawrStash/retry"
)

// guard wraps every durable store call with the circuit breaker and retry
// policy.
type guard struct {
	store   durable.Store
	breaker *breaker.Breaker // nil disables tripping
	retry   retry.Config
	log     zerolog.Logger
	tripped atomic.Bool
}

func newGuard(store durable.Store, b *breaker.Breaker, rc retry.Config, log zerolog.Logger) *guard {
	if rc.Retryable == nil {
		rc.Retryable = durable.IsTransient
	}
	return &guard{store: store, breaker: b, retry: rc, log: log}
}

func guarded[T any](ctx context.Context, g *guard, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.breaker != nil && !g.breaker.Allow() {
		if g.tripped.CompareAndSwap(false, true) {
			g.log.Warn().Msg("durable tier unavailable, serving from memory only")
		}
		return zero, breaker.ErrOpen
	}

	v, err := retry.Do(ctx, g.retry, fn)
	if g.breaker == nil {
		return v, err
	}
	switch {
	case err == nil:
		g.breaker.OnSuccess()
		if g.tripped.CompareAndSwap(true, false) {
			g.log.Info().Msg("durable tier recovered")
		}
	case durable.IsQuotaExceeded(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Full or abandoned, not broken.
	default:
		g.breaker.OnFailure()
	}
	return v, err
}

type lookup struct {
	value string
	found bool
}

func (g *guard) get(ctx context.Context, key string) (string, bool, error) {
	r, err := guarded(ctx, g, func(ctx context.Context) (lookup, error) {
		v, ok, err := g.store.Get(ctx, key)
		return lookup{v, ok}, err
	})
	return r.value, r.found, err
}

func (g *guard) set(ctx context.Context, key, value string) error {
	_, err := guarded(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.store.Set(ctx, key, value)
	})
	return err
}

func (g *guard) remove(ctx context.Context, key string) error {
	_, err := guarded(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.store.Remove(ctx, key)
	})
	return err
}

func (g *guard) len(ctx context.Context) (int, error) {
	return guarded(ctx, g, g.store.Len)
}

func (g *guard) keys(ctx context.Context) ([]string, error) {
	return guarded(ctx, g, g.store.Keys)
}
