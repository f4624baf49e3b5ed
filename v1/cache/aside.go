package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the value for a key from the primary source. The boolean
// reports whether the value exists; absence is not an error.
type Loader[T any] func(ctx context.Context) (T, bool, error)

// Aside is a read-through cache over Redis. On a miss the loader is invoked
// and its result written back with the given TTL; concurrent calls for the
// same key share one loader execution.
type Aside[T any] struct {
	client   redis.UniversalClient
	codec    Codec
	group    singleflight.Group
	local    *ristretto.Cache
	localTTL time.Duration
}

// AsideOption configures an Aside cache.
type AsideOption[T any] func(*Aside[T])

// WithCodec overrides the default JSON codec.
func WithCodec[T any](c Codec) AsideOption[T] {
	return func(a *Aside[T]) {
		if c != nil {
			a.codec = c
		}
	}
}

// WithLocalCache adds an in-process ristretto tier in front of Redis, holding
// decoded values for ttl. A local hit never touches the network, so a value
// invalidated elsewhere can be served for up to ttl.
func WithLocalCache[T any](maxCost int64, ttl time.Duration) AsideOption[T] {
	return func(a *Aside[T]) {
		rc, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     maxCost,
			BufferItems: 64,
		})
		if err != nil {
			panic(err)
		}
		a.local = rc
		a.localTTL = ttl
	}
}

// NewAside returns an Aside cache using the provided Redis client.
func NewAside[T any](client redis.UniversalClient, opts ...AsideOption[T]) *Aside[T] {
	a := &Aside[T]{client: client, codec: JSONCodec{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type asideResult[T any] struct {
	value T
	found bool
}

// GetOrSet returns the cached value for key, falling back to loader on a
// miss. A loaded value is written back with ttl (ttl <= 0 stores without
// expiry); an absent value is returned as (zero, false, nil) and not written.
// Write-back failures are logged, never returned: the next call simply loads
// again.
func (a *Aside[T]) GetOrSet(ctx context.Context, key string, loader Loader[T], ttl time.Duration) (T, bool, error) {
	var zero T
	if a.local != nil {
		if v, ok := a.local.Get(key); ok {
			if val, ok := v.(T); ok {
				return val, true, nil
			}
		}
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		return a.load(ctx, key, loader, ttl)
	})
	if err != nil {
		return zero, false, err
	}
	res := v.(asideResult[T])
	if res.found && a.local != nil {
		a.local.SetWithTTL(key, res.value, 1, a.localTTL)
		a.local.Wait()
	}
	return res.value, res.found, nil
}

func (a *Aside[T]) load(ctx context.Context, key string, loader Loader[T], ttl time.Duration) (any, error) {
	data, err := a.client.Get(ctx, key).Bytes()
	if err == nil {
		var val T
		if uerr := a.codec.Unmarshal(data, &val); uerr != nil {
			return nil, fmt.Errorf("cache: decode %q: %w", key, uerr)
		}
		return asideResult[T]{value: val, found: true}, nil
	}
	if err != redis.Nil {
		return nil, err
	}

	val, found, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return asideResult[T]{}, nil
	}
	data, err = a.codec.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("cache: encode %q: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if serr := a.client.Set(ctx, key, data, ttl).Err(); serr != nil {
		slog.Error("redlock: cache write-back failed", "key", key, "error", serr)
	}
	return asideResult[T]{value: val, found: true}, nil
}

// Invalidate drops key from Redis and the local tier.
func (a *Aside[T]) Invalidate(ctx context.Context, key string) error {
	if a.local != nil {
		a.local.Del(key)
		a.local.Wait()
	}
	return a.client.Del(ctx, key).Err()
}

// Close releases the local tier, if any.
func (a *Aside[T]) Close() {
	if a.local != nil {
		a.local.Close()
	}
}
