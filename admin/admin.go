// Package admin exposes cache maintenance over gRPC: Ping, Stats,
// Invalidate and Clear. It uses [grpc.ServiceDesc] registration so that no
// protobuf code generation is required.
//
// Request and response types are plain Go structs, so the package registers
// a codec wrapper that JSON-encodes admin types and delegates every other
// message to the standard proto codec.
package admin

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/contextx"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stash.Admin"

// Scopes checked against the authenticated actor. Requests without an actor
// (auth disabled) are not checked.
const (
	ScopeRead  = "stash:read"
	ScopeWrite = "stash:write"
)

// PingRequest is the input for the Ping method.
type PingRequest struct {
	Message string `json:"message"`
}

// PingResponse is the output of the Ping method.
type PingResponse struct {
	Message        string `json:"message"`
	ServerTimeUnix int64  `json:"server_time_unix"`
}

// StatsRequest is the input for the Stats method.
type StatsRequest struct{}

// StatsResponse carries per-tier entry counts.
type StatsResponse struct {
	Memory  int `json:"memory"`
	Durable int `json:"durable"`
}

// InvalidateRequest names the glob pattern to invalidate.
type InvalidateRequest struct {
	Pattern string `json:"pattern"`
}

// InvalidateResponse is the output of the Invalidate method.
type InvalidateResponse struct{}

// ClearRequest is the input for the Clear method.
type ClearRequest struct{}

// ClearResponse is the output of the Clear method.
type ClearResponse struct{}

// adminMsg is a marker interface satisfied by every admin message.
type adminMsg interface {
	isAdminMsg()
}

func (*PingRequest) isAdminMsg()        {}
func (*PingResponse) isAdminMsg()       {}
func (*StatsRequest) isAdminMsg()       {}
func (*StatsResponse) isAdminMsg()      {}
func (*InvalidateRequest) isAdminMsg()  {}
func (*InvalidateResponse) isAdminMsg() {}
func (*ClearRequest) isAdminMsg()       {}
func (*ClearResponse) isAdminMsg()      {}

// Handler is the interface an admin service implementation must satisfy.
type Handler interface {
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error)
	Invalidate(ctx context.Context, req *InvalidateRequest) (*InvalidateResponse, error)
	Clear(ctx context.Context, req *ClearRequest) (*ClearResponse, error)
}

// NewHandler returns a Handler operating on c. clk may be nil.
func NewHandler(c cache.Cache, clk clock.Clock) Handler {
	if clk == nil {
		clk = clock.New()
	}
	return &handler{cache: c, clock: clk}
}

type handler struct {
	cache cache.Cache
	clock clock.Clock
}

func (h *handler) Ping(_ context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{
		Message:        req.Message,
		ServerTimeUnix: h.clock.Now().Unix(),
	}, nil
}

func (h *handler) Stats(ctx context.Context, _ *StatsRequest) (*StatsResponse, error) {
	if err := authorize(ctx, ScopeRead); err != nil {
		return nil, err
	}
	s := h.cache.Stats(ctx)
	return &StatsResponse{Memory: s.Memory, Durable: s.Durable}, nil
}

func (h *handler) Invalidate(ctx context.Context, req *InvalidateRequest) (*InvalidateResponse, error) {
	if req.Pattern == "" {
		return nil, status.Error(codes.InvalidArgument, "pattern must not be empty")
	}
	if err := authorize(ctx, ScopeWrite); err != nil {
		return nil, err
	}
	start := h.clock.Now()
	h.cache.Invalidate(ctx, req.Pattern)
	zerolog.Ctx(ctx).Info().
		Str("pattern", req.Pattern).
		Dur("took", h.clock.Since(start)).
		Msg("cache invalidated")
	return &InvalidateResponse{}, nil
}

func (h *handler) Clear(ctx context.Context, _ *ClearRequest) (*ClearResponse, error) {
	if err := authorize(ctx, ScopeWrite); err != nil {
		return nil, err
	}
	h.cache.Clear(ctx)
	zerolog.Ctx(ctx).Info().Msg("cache cleared")
	return &ClearResponse{}, nil
}

func authorize(ctx context.Context, scope string) error {
	a, ok := contextx.ActorFromContext(ctx)
	if !ok || a.HasScope(scope) {
		return nil
	}
	return status.Errorf(codes.PermissionDenied, "%s lacks scope %s", a.Subject, scope)
}

// ServiceDesc is the grpc.ServiceDesc for the stash.Admin service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", Handler.Ping),
		unary("Stats", Handler.Stats),
		unary("Invalidate", Handler.Invalidate),
		unary("Clear", Handler.Clear),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stash/admin.proto",
}

// FullMethod returns the gRPC method path for one of the admin methods.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(Handler, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			h := srv.(Handler)
			if interceptor == nil {
				return call(h, ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, r any) (any, error) {
				return call(h, ctx, r.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// Register registers an admin service implementation on the given gRPC server.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
