// Package cache holds the Redis connection and the books-by-author list cache
// built on it. The cache is optional: Connect reports ErrDisabled when no URL
// is configured and callers read straight from storage.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/bookcatalog/pkg/config"
)

// ErrDisabled is returned by Connect when cfg.RedisURL is empty.
var ErrDisabled = errors.New("redis disabled")

const (
	connectTimeout = 2 * time.Second
	// Reads fall back to storage on cache errors, so deadlines stay short.
	ioTimeout = 500 * time.Millisecond
)

// RedisClient is the process-wide Redis connection pool.
type RedisClient struct {
	client *redis.Client
}

// Connect opens a pool to cfg.RedisURL and pings it.
func Connect(ctx context.Context, cfg *config.Config) (*RedisClient, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return &RedisClient{client: rdb}, nil
}

func clientOptions(cfg *config.Config) (*redis.Options, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, ErrDisabled
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = cfg.ServiceName
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 2
	opts.DialTimeout = connectTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout
	opts.PoolTimeout = time.Second
	return opts, nil
}

// Wrap adapts an existing client, for tests.
func Wrap(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Ping reports whether Redis answers. Used by the health endpoint.
func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the pool. Safe on a zero RedisClient.
func (r *RedisClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
