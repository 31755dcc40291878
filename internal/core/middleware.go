// Package core assembles the admin server's interceptor chain in a fixed
// order, independent of the order options were applied.
package core

import (
	"cmp"
	"slices"

	"google.golang.org/grpc"
)

// Execution order of the built-in middleware. Lower values run first.
const (
	OrderRequestID = 100
	OrderRecovery  = 200
	OrderTracing   = 300
	OrderAuth      = 400
	OrderRateLimit = 500
	OrderUser      = 1000
)

// middleware represents a single interceptor pair (unary + stream) with a
// deterministic execution order. Lower Order values run first.
type middleware struct {
	Unary  grpc.UnaryServerInterceptor
	Stream grpc.StreamServerInterceptor
	Order  int
}

// MiddlewareBuilder collects middleware entries and produces sorted interceptor
// slices ready for chaining.
type MiddlewareBuilder struct {
	entries []middleware
}

// Add registers a middleware entry with the given order.
// Either interceptor may be nil if only one direction is needed.
func (b *MiddlewareBuilder) Add(order int, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	b.entries = append(b.entries, middleware{
		Unary:  unary,
		Stream: stream,
		Order:  order,
	})
}

// Len reports how many entries were added.
func (b *MiddlewareBuilder) Len() int { return len(b.entries) }

// Build sorts the collected middleware by Order (stable) and returns the
// separated unary and stream interceptor slices.
func (b *MiddlewareBuilder) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	slices.SortStableFunc(b.entries, func(a, c middleware) int {
		return cmp.Compare(a.Order, c.Order)
	})

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor

	for _, m := range b.entries {
		if m.Unary != nil {
			unary = append(unary, m.Unary)
		}
		if m.Stream != nil {
			stream = append(stream, m.Stream)
		}
	}

	return unary, stream
}
