// Package tracing provides OpenTelemetry tracing interceptors for the admin
// gRPC server. Tracing is optional: the server only installs these
// interceptors when a [Config] is supplied.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrStash/contextx"
)

const instrumentationName = "github.com/Keksclan/goRawrStash/tracing"

// Config holds the OpenTelemetry configuration used by the gRPC tracing
// interceptors.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// Propagators extracts trace context from incoming metadata.
	// When nil the global otel.GetTextMapPropagator() is used.
	Propagators propagation.TextMapPropagator

	// Filter, when set, decides per full method whether a span is created.
	// Returning false skips tracing, e.g. for health pings.
	Filter func(fullMethod string) bool
}

func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

func (c *Config) propagators() propagation.TextMapPropagator {
	if c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

func (c *Config) traced(fullMethod string) bool {
	return c != nil && (c.Filter == nil || c.Filter(fullMethod))
}

// start extracts the remote parent and opens a server span for fullMethod.
func (c *Config) start(ctx context.Context, fullMethod string) (context.Context, trace.Span) {
	ctx = extract(ctx, c)
	service, method := splitFullMethod(fullMethod)
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	}
	if id := contextx.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("stash.request_id", id))
	}
	return c.tracer().Start(ctx, fullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

// UnaryServerInterceptor returns a [grpc.UnaryServerInterceptor] that creates
// a span for every unary RPC. If cfg is nil the interceptor is a no-op
// passthrough.
func UnaryServerInterceptor(cfg *Config) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !cfg.traced(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, span := cfg.start(ctx, info.FullMethod)
		defer span.End()

		resp, err := handler(ctx, req)
		recordStatus(span, err)
		return resp, err
	}
}

// StreamServerInterceptor returns a [grpc.StreamServerInterceptor] that
// creates a span for every streaming RPC. If cfg is nil the interceptor is a
// no-op passthrough.
func StreamServerInterceptor(cfg *Config) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !cfg.traced(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx, span := cfg.start(ss.Context(), info.FullMethod)
		defer span.End()

		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
		recordStatus(span, err)
		return err
	}
}

// --- helpers ----------------------------------------------------------------

// metadataCarrier adapts gRPC [metadata.MD] to the OTel
// [propagation.TextMapCarrier] interface.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	md := metadata.MD(mc)
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	return keys
}

func extract(ctx context.Context, cfg *Config) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	return cfg.propagators().Extract(ctx, metadataCarrier(md))
}

// splitFullMethod splits "/service/method" into ("service", "method").
func splitFullMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return fullMethod, ""
	}
	return service, method
}

// recordStatus sets the span status and records the gRPC status code.
func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, st.Message())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
