package gorawrstash

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrStash/admin"
)

// panicService is registered next to stash.Admin to exercise recovery over
// a real connection. It reuses the admin message types for the JSON codec.
type panicService interface{}

var panicServiceDesc = grpc.ServiceDesc{
	ServiceName: "stash.test.Panic",
	HandlerType: (*panicService)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Boom",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(admin.PingRequest)
			if err := dec(req); err != nil {
				return nil, err
			}
			boom := func(context.Context, any) (any, error) { panic("boom") }
			if interceptor == nil {
				return boom(ctx, req)
			}
			return interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: "/stash.test.Panic/Boom"}, boom)
		},
	}},
	Metadata: "stash/test.proto",
}

func TestWithRecoveryOverConnection(t *testing.T) {
	s := newTestServer(t, WithRecovery(), WithRequestID())
	s.GRPC().RegisterService(&panicServiceDesc, struct{}{})
	client, conn := serve(t, s)

	err := conn.Invoke(t.Context(), "/stash.test.Panic/Boom", &admin.PingRequest{}, new(admin.PingResponse))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != codes.Internal {
		t.Fatalf("expected codes.Internal, got %v", st.Code())
	}
	if st.Message() != "internal server error" {
		t.Fatalf("expected %q, got %q", "internal server error", st.Message())
	}

	// The server keeps serving after a recovered panic.
	if _, err := client.Ping(t.Context(), "still alive"); err != nil {
		t.Fatalf("Ping after panic: %v", err)
	}
}

func TestWithRecoveryRegistersMiddleware(t *testing.T) {
	cfg := defaultConfig()
	WithRecovery()(&cfg)

	unary, stream := buildMiddleware(&cfg).Build()
	if len(unary) != 1 {
		t.Fatalf("expected 1 unary interceptor, got %d", len(unary))
	}
	if len(stream) != 1 {
		t.Fatalf("expected 1 stream interceptor, got %d", len(stream))
	}
}
