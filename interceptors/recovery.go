package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInternal = status.Error(codes.Internal, "internal server error")

// logPanic reports a recovered panic through the request-scoped logger.
func logPanic(ctx context.Context, fullMethod string, r any) {
	zerolog.Ctx(ctx).Error().
		Str("method", fullMethod).
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("recovered from panic")
}

// RecoveryUnary returns a unary server interceptor that recovers from panics,
// logs them with their stack and returns codes.Internal instead of crashing
// the process.
func RecoveryUnary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(ctx, info.FullMethod, r)
				resp = nil
				err = errInternal
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream is the stream counterpart of [RecoveryUnary].
func RecoveryStream() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(streamContext(ss), info.FullMethod, r)
				err = errInternal
			}
		}()
		return handler(srv, ss)
	}
}
