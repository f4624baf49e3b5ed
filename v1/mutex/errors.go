package mutex

import "errors"

var (
	// ErrEmptyKey is returned when an empty lock key is provided.
	ErrEmptyKey = errors.New("redlock: key must not be empty")
	// ErrInvalidTTL is returned when a non-positive lease TTL is provided.
	ErrInvalidTTL = errors.New("redlock: ttl must be positive")
	// ErrInvalidRetry is returned when retry attempts are non-positive or the
	// retry interval is negative.
	ErrInvalidRetry = errors.New("redlock: invalid retry policy")
	// ErrAmbiguousOutcome is returned when the lock write failed and the
	// corrective read could not confirm whether it landed. The underlying
	// store error is wrapped and reachable through errors.Is/As.
	ErrAmbiguousOutcome = errors.New("redlock: lock write outcome unknown")
)
