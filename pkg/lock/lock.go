// Package lock provides per-key advisory locks used to serialise work on one resource.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock stays held by someone else for the whole wait
// window. It is contention, not a failure of the protected operation.
var ErrNotAcquired = errors.New("lock not acquired")

// UnlockFunc releases a held lock. Releasing twice is harmless.
type UnlockFunc func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (UnlockFunc, error)
}

// ResourceKey is the lock key for a bookable resource.
func ResourceKey(resourceID string) string {
	return "lock:resource:" + resourceID
}
