package interceptors

import (
	"context"
	"testing"

	"github.com/Keksclan/goRawrStash/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// okHandler is a trivial handler that always succeeds.
func okHandler(_ context.Context, _ any) (any, error) { return "ok", nil }

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	st, _ := status.FromError(err)
	return st.Code()
}

func TestRateLimitUnary_RejectsAfterBurst(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 2) // burst 2, nearly no refill
	ic := RateLimitUnary(l)

	info := &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Invalidate"}

	// First two should pass (burst).
	for i := range 2 {
		_, err := ic(t.Context(), nil, info, okHandler)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should be rejected.
	_, err := ic(t.Context(), nil, info, okHandler)
	if codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", codeOf(err))
	}
}

func TestRateLimitUnary_ExemptMethodsBypass(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 1)
	ic := RateLimitUnary(l, "/stash.Admin/Ping")

	ping := &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Ping"}
	for i := range 5 {
		if _, err := ic(t.Context(), nil, ping, okHandler); err != nil {
			t.Fatalf("ping %d: unexpected error: %v", i, err)
		}
	}

	// Exempt calls did not drain the bucket.
	clr := &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Clear"}
	if _, err := ic(t.Context(), nil, clr, okHandler); err != nil {
		t.Fatalf("first clear: unexpected error: %v", err)
	}
	if _, err := ic(t.Context(), nil, clr, okHandler); codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", codeOf(err))
	}
}

func TestRateLimitStream_SharesBucket(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 1)
	unary := RateLimitUnary(l)
	stream := RateLimitStream(l)

	if _, err := unary(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/A"}, okHandler); err != nil {
		t.Fatalf("unary: unexpected error: %v", err)
	}

	called := false
	err := stream(nil, nil, &grpc.StreamServerInfo{FullMethod: "/svc/B"}, func(any, grpc.ServerStream) error {
		called = true
		return nil
	})
	if codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", codeOf(err))
	}
	if called {
		t.Fatal("handler must not run when rate limited")
	}
}
