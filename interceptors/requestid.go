package interceptors

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/Keksclan/goRawrStash/contextx"
)

// newRequestID generates a random hex-encoded request identifier.
func newRequestID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// resolveRequestID returns the ID already in ctx, a valid caller-supplied
// x-request-id, or a fresh one, in that order.
func resolveRequestID(ctx context.Context) string {
	if id := contextx.RequestIDFromContext(ctx); id != "" {
		return id
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(contextx.RequestIDHeader); len(vals) > 0 && contextx.ValidRequestID(vals[0]) {
			return vals[0]
		}
	}
	return newRequestID()
}

// requestScope stores the request ID in ctx and attaches a child of log
// tagged with it, retrievable with zerolog.Ctx.
func requestScope(ctx context.Context, log zerolog.Logger, fullMethod string) (context.Context, string) {
	id := resolveRequestID(ctx)
	ctx = contextx.WithRequestID(ctx, id)
	l := log.With().Str("request_id", id).Str("method", fullMethod).Logger()
	return l.WithContext(ctx), id
}

// RequestIDUnary returns a unary server interceptor that ensures a request ID
// is present in the context, echoes it in the response header and attaches a
// request-scoped logger derived from log.
func RequestIDUnary(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, id := requestScope(ctx, log, info.FullMethod)
		// Fails outside a real transport, e.g. in direct handler tests.
		_ = grpc.SetHeader(ctx, metadata.Pairs(contextx.RequestIDHeader, id))
		return handler(ctx, req)
	}
}

// RequestIDStream is the stream counterpart of [RequestIDUnary].
func RequestIDStream(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, id := requestScope(ss.Context(), log, info.FullMethod)
		_ = ss.SetHeader(metadata.Pairs(contextx.RequestIDHeader, id))
		return handler(srv, withStreamContext(ss, ctx))
	}
}
