package durable

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisHash is the hash key used when none is given.
const DefaultRedisHash = "gorawrstash"

// Redis is a Store backed by a single Redis hash, so that Len and Keys map
// onto HLEN and HKEYS without scanning the whole keyspace. Memory pressure on
// the server (OOM replies) surfaces as ErrQuotaExceeded.
type Redis struct {
	rdb  *redis.Client
	hash string
}

// NewRedis connects to the Redis server at addr and stores records in hash.
func NewRedis(addr, password string, db int, hash string) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, hash)
}

// NewRedisFromClient wraps an existing client. An empty hash selects
// [DefaultRedisHash].
func NewRedisFromClient(rdb *redis.Client, hash string) *Redis {
	if hash == "" {
		hash = DefaultRedisHash
	}
	return &Redis{rdb: rdb, hash: hash}
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.HGet(ctx, r.hash, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, r.wrap("hget", err)
	}
	return val, true, nil
}

// Set stores value under key.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return r.wrap("hset", err)
	}
	return nil
}

// Remove deletes key from the hash.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.HDel(ctx, r.hash, key).Err(); err != nil {
		return r.wrap("hdel", err)
	}
	return nil
}

// Len returns the number of fields in the hash.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.rdb.HLen(ctx, r.hash).Result()
	if err != nil {
		return 0, r.wrap("hlen", err)
	}
	return int(n), nil
}

// Keys returns the field names of the hash.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.rdb.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, r.wrap("hkeys", err)
	}
	return keys, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) wrap(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	if strings.HasPrefix(err.Error(), "OOM ") {
		return fmt.Errorf("%w: redis %s: %v", ErrQuotaExceeded, op, err)
	}
	return fmt.Errorf("redis %s: %w", op, err)
}
