package interceptors

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrStash/auth"
)

// errUnauthenticated is allocated once to avoid per-request allocations on the hot path.
var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

// authError returns the original error if it is already a gRPC status error,
// otherwise wraps it as codes.Unauthenticated.
func authError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return errUnauthenticated
}

func authenticate(ctx context.Context, fn auth.AuthFunc, fullMethod string) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	newCtx, err := fn(ctx, fullMethod, md)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("method", fullMethod).Msg("authentication failed")
		return nil, authError(err)
	}
	return newCtx, nil
}

// AuthUnary returns a unary server interceptor that calls the supplied
// AuthFunc before forwarding to the handler.
func AuthUnary(fn auth.AuthFunc) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		newCtx, err := authenticate(ctx, fn, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// AuthStream returns a stream server interceptor that calls the supplied
// AuthFunc and hands the enriched context to the handler.
func AuthStream(fn auth.AuthFunc) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		newCtx, err := authenticate(ss.Context(), fn, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, withStreamContext(ss, newCtx))
	}
}
