package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Fetch is WithCache for any JSON-encodable T.
func Fetch[T any](ctx context.Context, c Cache, key string, fetcher func(context.Context) (T, error), opts ...CallOption) (T, error) {
	var zero T
	raw, err := c.WithCache(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := fetcher(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}, opts...)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return out, nil
}

// Load reads key and decodes it into T. A value that does not decode is
// reported as a miss.
func Load[T any](ctx context.Context, c Cache, key string, opts ...CallOption) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key, opts...)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// Store encodes v as JSON and writes it under key.
func Store[T any](ctx context.Context, c Cache, key string, v T, opts ...CallOption) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return c.Set(ctx, key, raw, opts...)
}
