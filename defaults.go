package gorawrstash

import (
	"time"

	"github.com/Keksclan/goRawrStash/breaker"
	"github.com/Keksclan/goRawrStash/retry"
)

// DefaultDurableRetry retries transient durable store errors twice.
var DefaultDurableRetry = retry.Config{
	MaxAttempts: 3,
	BaseDelay:   20 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
	Jitter:      0.2,
}

// DefaultOptions returns the recommended set of options for production use:
// panic recovery, request IDs, and a breaker plus retry policy around the
// durable tier.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
		WithDurableBreaker(breaker.DefaultConfig()),
		WithDurableRetry(DefaultDurableRetry),
	}
}
