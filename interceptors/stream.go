// Package interceptors provides the gRPC server interceptors of the admin
// server: panic recovery, request IDs with a request-scoped logger,
// authentication and rate limiting.
package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// contextStream overrides Context() so stream interceptors can pass an
// enriched context down the chain.
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }

func withStreamContext(ss grpc.ServerStream, ctx context.Context) grpc.ServerStream {
	if ss != nil && ss.Context() == ctx {
		return ss
	}
	return &contextStream{ServerStream: ss, ctx: ctx}
}

// streamContext tolerates a nil stream, which only happens in tests.
func streamContext(ss grpc.ServerStream) context.Context {
	if ss == nil {
		return context.Background()
	}
	return ss.Context()
}
