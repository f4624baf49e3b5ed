package mutex

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store is the minimal key-value capability the lock runs against. It is the
// seam between the lock protocol and the connection pool: implementations
// must be safe for concurrent use, since one Store serves many mutexes.
type Store interface {
	// SetNXPX atomically creates key with value and the given expiry,
	// returning true when the key was absent and the write happened.
	SetNXPX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the current value of key. The boolean reports presence.
	Get(ctx context.Context, key string) (string, bool, error)
	// Eval runs script as a single indivisible operation against the store
	// and returns its integer reply.
	Eval(ctx context.Context, script string, keys []string, args ...any) (int64, error)
}

// RedisStore adapts a go-redis client to Store. UniversalClient covers both a
// single node and a cluster client treated as one logical endpoint.
type RedisStore struct {
	client redis.UniversalClient

	mu      sync.Mutex
	scripts map[string]*redis.Script
}

// NewRedisStore returns a Store backed by the provided Redis client. The
// client's lifecycle stays with the caller.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, scripts: make(map[string]*redis.Script)}
}

// SetNXPX implements Store.SetNXPX.
func (s *RedisStore) SetNXPX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Eval implements Store.Eval. Scripts are wrapped in redis.Script so repeat
// invocations go through EVALSHA.
func (s *RedisStore) Eval(ctx context.Context, script string, keys []string, args ...any) (int64, error) {
	s.mu.Lock()
	sc, ok := s.scripts[script]
	if !ok {
		sc = redis.NewScript(script)
		s.scripts[script] = sc
	}
	s.mu.Unlock()

	res, err := sc.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("redlock: unexpected script reply %T", res)
	}
	return n, nil
}
