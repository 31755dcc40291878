package admin

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/Keksclan/goRawrStash/retry"
)

// DefaultClientRetry retries unavailable servers a few times with backoff.
var DefaultClientRetry = retry.Config{
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    time.Second,
	Jitter:      0.2,
	Retryable:   retry.Codes(codes.Unavailable),
}

// Client calls the admin service over an existing connection.
type Client struct {
	conn  grpc.ClientConnInterface
	retry retry.Config
}

// NewClient wraps conn. Calls are retried according to DefaultClientRetry.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn, retry: DefaultClientRetry}
}

// WithRetry returns a copy of c using cfg for retries.
func (c *Client) WithRetry(cfg retry.Config) *Client {
	cp := *c
	cp.retry = cfg
	return &cp
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	return retry.Do(ctx, c.retry, func(ctx context.Context) (*Resp, error) {
		resp := new(Resp)
		if err := c.conn.Invoke(ctx, FullMethod(method), req, resp, opts...); err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Ping round-trips msg through the server.
func (c *Client) Ping(ctx context.Context, msg string, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &PingRequest{Message: msg}, opts)
}

// Stats fetches per-tier entry counts.
func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c, "Stats", &StatsRequest{}, opts)
}

// Invalidate removes every key matching pattern.
func (c *Client) Invalidate(ctx context.Context, pattern string, opts ...grpc.CallOption) error {
	_, err := invoke[InvalidateResponse](ctx, c, "Invalidate", &InvalidateRequest{Pattern: pattern}, opts)
	return err
}

// Clear drops every cache entry.
func (c *Client) Clear(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[ClearResponse](ctx, c, "Clear", &ClearRequest{}, opts)
	return err
}
