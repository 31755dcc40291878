// Package durable defines the second-tier key/value store used by the tiered
// cache together with three implementations: a quota-bounded in-process map,
// a file-per-key disk store and a Redis hash.
//
// A Store is synchronous and fallible. It must never assume unbounded
// capacity: a write that does not fit returns an error wrapping
// [ErrQuotaExceeded] so that callers can reclaim space and carry on.
package durable

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrQuotaExceeded is returned by Set when the store has no room left for
	// the record.
	ErrQuotaExceeded = errors.New("durable: quota exceeded")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("durable: store closed")
)

// Store is the durable key/value contract. Values are opaque strings.
type Store interface {
	// Get returns the value stored under key. The boolean reports whether the
	// key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Len returns the number of keys held by the store.
	Len(ctx context.Context) (int, error)

	// Keys returns every key held by the store in no particular order.
	Keys(ctx context.Context) ([]string, error)
}

// IsQuotaExceeded reports whether err signals a full store.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsTransient reports whether err is worth retrying: network faults and
// timeouts, but never quota, closed-store or context cancellation errors.
func IsTransient(err error) bool {
	if err == nil || IsQuotaExceeded(err) || errors.Is(err, ErrClosed) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}
