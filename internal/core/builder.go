package core

import "google.golang.org/grpc"

// ServerOptions builds the sorted chains into grpc.ServerOption values for
// grpc.NewServer. Empty chains produce no option.
func (b *MiddlewareBuilder) ServerOptions() []grpc.ServerOption {
	unary, stream := b.Build()

	var opts []grpc.ServerOption
	if len(unary) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(unary...))
	}
	if len(stream) > 0 {
		opts = append(opts, grpc.ChainStreamInterceptor(stream...))
	}
	return opts
}
