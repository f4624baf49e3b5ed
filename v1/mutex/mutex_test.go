package mutex

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T, opts ...Option) (*Locker, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return New(NewRedisStore(client), opts...), mr, cleanup
}

func TestAcquireRelease(t *testing.T) {
	l, mr, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	m, err := l.Acquire(ctx, "job:1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if m == nil {
		t.Fatal("expected mutex, got nil")
	}
	if !m.Held() || m.Token() == "" {
		t.Fatal("acquired mutex must carry a token")
	}
	if m.Key() != "job:1" {
		t.Fatalf("key: got %q", m.Key())
	}
	got, err := mr.Get("job:1")
	if err != nil {
		t.Fatalf("stored value: %v", err)
	}
	if got != m.Token() {
		t.Fatalf("stored value %q does not match token %q", got, m.Token())
	}
	if ttl := mr.TTL("job:1"); ttl != time.Minute {
		t.Fatalf("lease ttl: got %v", ttl)
	}

	if err := m.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if m.Held() {
		t.Fatal("released mutex must not report held")
	}
	if mr.Exists("job:1") {
		t.Fatal("key must be deleted on release")
	}
}

func TestContendedAcquireReturnsNil(t *testing.T) {
	l, _, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	m1, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil || m1 == nil {
		t.Fatalf("first acquire: %v %v", m1, err)
	}
	m2, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("contended acquire must not error: %v", err)
	}
	if m2 != nil {
		t.Fatal("contended acquire must return nil")
	}
	if err := m1.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestMutualExclusion(t *testing.T) {
	l, _, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	const n = 8
	var (
		wg   sync.WaitGroup
		held atomic.Int32
		errs atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := l.Acquire(ctx, "shared", time.Minute)
			if err != nil {
				errs.Add(1)
				return
			}
			if m != nil {
				held.Add(1)
			}
		}()
	}
	wg.Wait()
	if errs.Load() != 0 {
		t.Fatalf("unexpected store errors: %d", errs.Load())
	}
	if held.Load() != 1 {
		t.Fatalf("exactly one acquisition must win, got %d", held.Load())
	}
}

func TestReleaseAfterTakeoverIsNoop(t *testing.T) {
	l, mr, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	m, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil || m == nil {
		t.Fatalf("acquire: %v %v", m, err)
	}
	// Simulate lease expiry followed by another holder's acquisition.
	if err := mr.Set("k", "someone-else"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := m.Release(ctx); err != nil {
		t.Fatalf("release after takeover must succeed: %v", err)
	}
	if m.Held() {
		t.Fatal("token must be cleared even when nothing was deleted")
	}
	got, err := mr.Get("k")
	if err != nil {
		t.Fatalf("key must survive the release: %v", err)
	}
	if got != "someone-else" {
		t.Fatalf("other holder's value must be untouched, got %q", got)
	}
}

func TestRetrySucceedsAfterKeyFreed(t *testing.T) {
	l, mr, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	m1, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil || m1 == nil {
		t.Fatalf("first acquire: %v %v", m1, err)
	}
	go func() {
		time.Sleep(60 * time.Millisecond)
		mr.Del("k")
	}()

	m2, err := l.Acquire(ctx, "k", time.Minute, WithRetry(5, 50*time.Millisecond))
	if err != nil {
		t.Fatalf("retry acquire: %v", err)
	}
	if m2 == nil {
		t.Fatal("retry must succeed once the key is freed")
	}
	if err := m2.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestRetryExhaustionReturnsNil(t *testing.T) {
	l, _, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	m1, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil || m1 == nil {
		t.Fatalf("first acquire: %v %v", m1, err)
	}

	start := time.Now()
	m2, err := l.Acquire(ctx, "k", time.Minute, WithRetry(3, 30*time.Millisecond))
	if err != nil {
		t.Fatalf("exhausted retry must not error: %v", err)
	}
	if m2 != nil {
		t.Fatal("exhausted retry must return nil")
	}
	// Two sleeps between three attempts, none after the last.
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("expected two retry sleeps, elapsed %v", elapsed)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	l, _, cleanup := newTestLocker(t)
	defer cleanup()

	m1, err := l.Acquire(context.Background(), "k", time.Minute)
	if err != nil || m1 == nil {
		t.Fatalf("first acquire: %v %v", m1, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	m2, err := l.Acquire(ctx, "k", time.Minute, WithRetry(100, 20*time.Millisecond))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
	if m2 != nil {
		t.Fatal("cancelled acquire must not return a mutex")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("acquire did not respect the context deadline")
	}
}

func TestInvalidArguments(t *testing.T) {
	l, _, cleanup := newTestLocker(t)
	defer cleanup()
	ctx := context.Background()

	cases := []struct {
		name string
		key  string
		ttl  time.Duration
		opts []AcquireOption
		want error
	}{
		{"empty key", "", time.Minute, nil, ErrEmptyKey},
		{"zero ttl", "k", 0, nil, ErrInvalidTTL},
		{"negative ttl", "k", -time.Second, nil, ErrInvalidTTL},
		{"zero attempts", "k", time.Minute, []AcquireOption{WithRetry(0, time.Millisecond)}, ErrInvalidRetry},
		{"negative interval", "k", time.Minute, []AcquireOption{WithRetry(3, -time.Millisecond)}, ErrInvalidRetry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := l.Acquire(ctx, tc.key, tc.ttl, tc.opts...)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if m != nil {
				t.Fatal("invalid arguments must not return a mutex")
			}
		})
	}
}
