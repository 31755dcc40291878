package interceptors

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrStash/ratelimit"
)

// errRateLimited is allocated once to avoid per-request allocations on the hot path.
var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// allow consumes a token unless fullMethod is exempt.
func allow(ctx context.Context, l *ratelimit.Limiter, exempt []string, fullMethod string) error {
	if slices.Contains(exempt, fullMethod) || l.Allow() {
		return nil
	}
	zerolog.Ctx(ctx).Debug().Str("method", fullMethod).Msg("rate limited")
	return errRateLimited
}

// RateLimitUnary returns a unary server interceptor that rejects requests with
// codes.ResourceExhausted once l is exhausted. Methods listed in exempt (full
// method names) never consume tokens.
func RateLimitUnary(l *ratelimit.Limiter, exempt ...string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if err := allow(ctx, l, exempt, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// RateLimitStream returns a stream server interceptor sharing the semantics
// of [RateLimitUnary]. A stream consumes one token when it opens.
func RateLimitStream(l *ratelimit.Limiter, exempt ...string) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := allow(streamContext(ss), l, exempt, info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
