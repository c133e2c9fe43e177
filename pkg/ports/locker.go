package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// The scheduler uses it so that only one replica fires a given tick.
type DistributedLocker interface {
	// TryLock attempts to acquire the lock for key without waiting.
	// ok is false when another holder owns the lock.
	// The returned UnlockFunc MUST be called to release an acquired lock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock UnlockFunc, ok bool, err error)
}
