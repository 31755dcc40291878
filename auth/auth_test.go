package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Keksclan/goRawrStash/auth"
	"github.com/Keksclan/goRawrStash/contextx"
	"github.com/Keksclan/goRawrStash/interceptors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var opsToken = auth.Token{
	Secret: "s3cret",
	Actor:  contextx.Actor{Subject: "ops", Scopes: []string{"stash:read", "stash:write"}},
}

func withAuthorization(ctx context.Context, value string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(auth.AuthorizationHeader, value))
}

func TestAuthUnary_MissingAuth(t *testing.T) {
	ic := interceptors.AuthUnary(auth.BearerTokens(opsToken))

	handler := func(_ context.Context, _ any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	// No metadata → unauthenticated.
	_, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Clear"}, handler)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Fatalf("expected codes.Unauthenticated, got %v", st.Code())
	}
}

func TestAuthUnary_ValidAuth(t *testing.T) {
	ic := interceptors.AuthUnary(auth.BearerTokens(opsToken))

	var capturedActor contextx.Actor
	handler := func(ctx context.Context, req any) (any, error) {
		a, ok := contextx.ActorFromContext(ctx)
		if !ok {
			t.Fatal("expected actor in context")
		}
		capturedActor = a
		return "ok", nil
	}

	ctx := withAuthorization(t.Context(), "Bearer s3cret")
	resp, err := ic(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Clear"}, handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("expected %q, got %v", "ok", resp)
	}
	if capturedActor.Subject != "ops" {
		t.Fatalf("expected Subject %q, got %q", "ops", capturedActor.Subject)
	}
	if !capturedActor.HasScope("stash:write") {
		t.Fatalf("expected stash:write scope, got %v", capturedActor.Scopes)
	}
}

func TestAuthUnary_StatusErrorPassthrough(t *testing.T) {
	// AuthFunc that returns a status error with a custom code.
	fn := func(ctx context.Context, _ string, _ metadata.MD) (context.Context, error) {
		return ctx, status.Error(codes.PermissionDenied, "forbidden")
	}
	ic := interceptors.AuthUnary(fn)

	handler := func(_ context.Context, _ any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	_, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}, handler)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != codes.PermissionDenied {
		t.Fatalf("expected codes.PermissionDenied, got %v", st.Code())
	}
}

func TestBearerTokens(t *testing.T) {
	fn := auth.BearerTokens(opsToken, auth.Token{Secret: "", Actor: contextx.Actor{Subject: "nobody"}})

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid", "Bearer s3cret", nil},
		{"lowercase scheme", "bearer s3cret", nil},
		{"wrong secret", "Bearer nope", auth.ErrUnknownToken},
		{"wrong scheme", "Basic s3cret", auth.ErrMissingToken},
		{"no secret", "Bearer ", auth.ErrMissingToken},
		{"empty secret never matches", "Bearer", auth.ErrMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := metadata.Pairs(auth.AuthorizationHeader, tt.header)
			ctx, err := fn(t.Context(), "/stash.Admin/Stats", md)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			_, ok := contextx.ActorFromContext(ctx)
			if ok != (tt.wantErr == nil) {
				t.Fatalf("actor present = %v, want %v", ok, tt.wantErr == nil)
			}
		})
	}
}

func TestPublicSkipsListedMethods(t *testing.T) {
	fn := auth.Public(auth.BearerTokens(opsToken), "/stash.Admin/Ping")

	if _, err := fn(t.Context(), "/stash.Admin/Ping", nil); err != nil {
		t.Fatalf("Ping should be public, got %v", err)
	}
	if _, err := fn(t.Context(), "/stash.Admin/Clear", nil); !errors.Is(err, auth.ErrMissingToken) {
		t.Fatalf("Clear should require a token, got %v", err)
	}
}
