// Package redisx builds the Redis clients the rest of the module consumes.
// Constructors verify connectivity with a PING before returning, so a bad
// address fails at startup instead of on the first lock attempt.
package redisx

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Option tunes the underlying client configuration.
type Option func(*options)

type options struct {
	password    string
	db          int
	poolSize    int
	dialTimeout time.Duration
}

// WithPassword sets the AUTH password.
func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// WithDB selects a logical database. Ignored in cluster mode.
func WithDB(db int) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithPoolSize caps the connection pool per node.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithDialTimeout bounds how long establishing a connection may take.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// NewSingle connects to a single Redis instance and verifies it responds.
func NewSingle(ctx context.Context, addr string, opts ...Option) (redis.UniversalClient, error) {
	o := apply(opts)
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    o.password,
		DB:          o.db,
		PoolSize:    o.poolSize,
		DialTimeout: o.dialTimeout,
	})
	if err := Healthy(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisx: connect %s: %w", addr, err)
	}
	return client, nil
}

// NewCluster connects to a Redis cluster and verifies it responds.
func NewCluster(ctx context.Context, addrs []string, opts ...Option) (redis.UniversalClient, error) {
	o := apply(opts)
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:       addrs,
		Password:    o.password,
		PoolSize:    o.poolSize,
		DialTimeout: o.dialTimeout,
	})
	if err := Healthy(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisx: connect cluster %v: %w", addrs, err)
	}
	return client, nil
}

// Healthy reports whether the client can reach its server.
func Healthy(ctx context.Context, client redis.UniversalClient) error {
	return client.Ping(ctx).Err()
}

func apply(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
