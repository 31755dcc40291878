// Package ratelimit provides a token-bucket rate limiter backed by
// golang.org/x/time/rate. It gates admin RPCs and throttles the cache's
// durable reclaim sweeps.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that decides whether an incoming
// request should be allowed.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps requests per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// NewEvery creates a Limiter that refills one token per interval.
func NewEvery(interval time.Duration, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Every(interval), burst)}
}

// Allow reports whether a single request may proceed.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}
