package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/Keksclan/goRawrStash/contextx"
)

type fakeServerStream struct {
	grpc.ServerStream
	ctx    context.Context
	header metadata.MD
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func (f *fakeServerStream) SetHeader(md metadata.MD) error {
	f.header = metadata.Join(f.header, md)
	return nil
}

func TestRequestIDUnary_GeneratesID(t *testing.T) {
	ic := RequestIDUnary(zerolog.Nop())

	var got string
	_, err := ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Stats"}, func(ctx context.Context, _ any) (any, error) {
		got = contextx.RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 32 {
		t.Fatalf("expected a 32 char hex ID, got %q", got)
	}
}

func TestRequestIDUnary_AdoptsValidIncomingID(t *testing.T) {
	ic := RequestIDUnary(zerolog.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Stats"}

	tests := []struct {
		incoming string
		adopt    bool
	}{
		{"trace-42", true},
		{"bad id with spaces", false},
	}
	for _, tt := range tests {
		ctx := metadata.NewIncomingContext(t.Context(), metadata.Pairs(contextx.RequestIDHeader, tt.incoming))
		var got string
		_, _ = ic(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
			got = contextx.RequestIDFromContext(ctx)
			return nil, nil
		})
		if (got == tt.incoming) != tt.adopt {
			t.Fatalf("incoming %q: got ID %q, adopt = %v", tt.incoming, got, tt.adopt)
		}
		if got == "" {
			t.Fatalf("incoming %q: no request ID set", tt.incoming)
		}
	}
}

func TestRequestIDUnary_AttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	ic := RequestIDUnary(zerolog.New(&buf))
	ctx := contextx.WithRequestID(t.Context(), "req-7")

	_, _ = ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/stash.Admin/Clear"}, func(ctx context.Context, _ any) (any, error) {
		zerolog.Ctx(ctx).Info().Msg("cache cleared")
		return nil, nil
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-7" || entry["method"] != "/stash.Admin/Clear" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestRequestIDStream_PropagatesContextAndHeader(t *testing.T) {
	ic := RequestIDStream(zerolog.Nop())
	ss := &fakeServerStream{ctx: t.Context()}

	var got string
	err := ic(nil, ss, &grpc.StreamServerInfo{FullMethod: "/svc/Watch"}, func(_ any, s grpc.ServerStream) error {
		got = contextx.RequestIDFromContext(s.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Fatal("expected request ID in stream context")
	}
	if h := ss.header.Get(contextx.RequestIDHeader); len(h) != 1 || h[0] != got {
		t.Fatalf("header = %v, want [%s]", h, got)
	}
}
