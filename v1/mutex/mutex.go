package mutex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redlock/v1/mutex")

// delScript deletes the key only while it still holds the caller's token.
// Running check and delete as one script keeps them from interleaving with
// another client's acquisition after the lease expired.
const delScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`

// defaultReleaseTimeout bounds the detached scope-end release, which runs
// without a caller context.
const defaultReleaseTimeout = 5 * time.Second

// Locker hands out distributed mutexes over a shared Store.
type Locker struct {
	store          Store
	autoRelease    bool
	traceEnabled   bool
	releaseTimeout time.Duration
}

// Option configures a Locker.
type Option func(*Locker)

// WithTracing enables OpenTelemetry spans for acquire and release operations.
func WithTracing() Option {
	return func(l *Locker) {
		l.traceEnabled = true
	}
}

// WithAutoRelease toggles the scope-end release safety net for mutexes handed
// out by this Locker. It is enabled by default.
func WithAutoRelease(enabled bool) Option {
	return func(l *Locker) {
		l.autoRelease = enabled
	}
}

// WithReleaseTimeout bounds the detached scope-end release attempt. The
// default is five seconds.
func WithReleaseTimeout(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.releaseTimeout = d
		}
	}
}

// New returns a Locker using the provided store.
func New(store Store, opts ...Option) *Locker {
	l := &Locker{
		store:          store,
		autoRelease:    true,
		releaseTimeout: defaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Retry bounds a retrying acquisition: Attempts total attempts with Interval
// sleeps between them (none after the last).
type Retry struct {
	Attempts int
	Interval time.Duration
}

// AcquireOption configures a single Acquire call.
type AcquireOption func(*acquireOptions)

type acquireOptions struct {
	retry *Retry
}

// WithRetry makes Acquire repeat the claim up to attempts times, sleeping
// interval between attempts. Attempts must be positive and interval
// non-negative.
func WithRetry(attempts int, interval time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		o.retry = &Retry{Attempts: attempts, Interval: interval}
	}
}

// Mutex is one client's claim on one key. An empty token means the lock is
// not held. A Mutex belongs to the caller that acquired it and must not be
// shared across goroutines; the store behind it is the only shared state.
type Mutex struct {
	store        Store
	key          string
	ttl          time.Duration
	token        string
	suppress     bool
	traceEnabled bool

	cleanup autoRelease
}

// Acquire claims key for ttl. It returns a held *Mutex on success,
// (nil, nil) when the lock is held by someone else, and an error when the
// store failed or the arguments are invalid. With WithRetry the claim is
// repeated, but any store error still aborts the whole call immediately.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration, opts ...AcquireOption) (m *Mutex, err error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}
	attempts, interval := 1, time.Duration(0)
	if o.retry != nil {
		if o.retry.Attempts <= 0 || o.retry.Interval < 0 {
			return nil, ErrInvalidRetry
		}
		attempts, interval = o.retry.Attempts, o.retry.Interval
	}

	if l.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Mutex.Acquire")
		span.SetAttributes(
			attribute.String("redlock.key", key),
			attribute.Int("redlock.max_attempts", attempts),
		)
		defer func() {
			span.SetAttributes(attribute.Bool("redlock.acquired", m != nil))
			span.End()
		}()
	}

	mu := &Mutex{store: l.store, key: key, ttl: ttl, traceEnabled: l.traceEnabled}
	for i := 0; i < attempts; i++ {
		held, err := mu.tryOnce(ctx)
		if err != nil {
			metrics.AcquireErrorCounter.Inc()
			return nil, err
		}
		if held {
			metrics.AcquireCounter.Inc()
			if l.autoRelease {
				mu.cleanup.arm(mu, l.releaseTimeout)
			}
			return mu, nil
		}
		if i < attempts-1 {
			if err := sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
	}
	metrics.ContendedCounter.Inc()
	return nil, nil
}

// tryOnce performs one SET NX PX attempt with a fresh token. A failed write
// reply is disambiguated with a single corrective GET: the write may have
// landed even though the reply was lost. The lock counts as held only when
// the stored value is observably this attempt's token; anything short of
// that surfaces an error rather than guessing.
func (m *Mutex) tryOnce(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := m.store.SetNXPX(ctx, m.key, token, m.ttl)
	if err == nil {
		if ok {
			m.token = token
		}
		return ok, nil
	}

	v, found, gerr := m.store.Get(ctx, m.key)
	if gerr != nil {
		return false, fmt.Errorf("redlock: acquire %q: %w", m.key, gerr)
	}
	if found && v == token {
		m.token = token
		return true, nil
	}
	return false, fmt.Errorf("%w: %w", ErrAmbiguousOutcome, err)
}

// Release frees the lock. It is idempotent: once the token is cleared, or if
// the lock was never held, it returns nil without touching the store. The
// compare-and-delete script guarantees the key is left alone when a different
// holder owns it, so releasing after the lease silently expired is a safe
// no-op. A store error leaves the token intact for a later attempt.
func (m *Mutex) Release(ctx context.Context) error {
	if m.token == "" {
		return nil
	}

	if m.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Mutex.Release")
		span.SetAttributes(attribute.String("redlock.key", m.key))
		defer span.End()
	}

	if _, err := m.store.Eval(ctx, delScript, []string{m.key}, m.token); err != nil {
		return fmt.Errorf("redlock: release %q: %w", m.key, err)
	}
	m.token = ""
	m.cleanup.stop()
	metrics.ReleaseCounter.Inc()
	return nil
}

// SuppressAutoRelease disables the scope-end release safety net for this
// mutex. The caller takes over responsibility for deleting the key or for
// letting the lease expire.
func (m *Mutex) SuppressAutoRelease() {
	m.suppress = true
	m.cleanup.stop()
}

// Key returns the lock key.
func (m *Mutex) Key() string { return m.key }

// Token returns the fencing token, or "" when the lock is not held.
func (m *Mutex) Token() string { return m.token }

// Held reports whether this mutex currently carries a token.
func (m *Mutex) Held() bool { return m.token != "" }

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
