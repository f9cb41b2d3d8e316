// Package lock provides the locking abstraction that guards shard-scoped
// state across the story index and the raw scrape store: each shard gets
// its own RWLocker key so that one writer and many readers can coexist
// without independent shards contending with each other.
package lock

import (
	"context"
	"time"
)

// Locker provides exclusive locking semantics keyed by an opaque string
// (e.g. a shard's string form such as "2020-01", or a fixed name such as
// storyindex's "writer").
type Locker interface {
	// Lock acquires an exclusive lock for key, blocking until it is free.
	// ctx and ttl are accepted for interface parity with a future
	// distributed implementation; the local implementation ignores both.
	Lock(ctx context.Context, key string, ttl time.Duration) error

	// Unlock releases an exclusive lock previously acquired with Lock or
	// TryLock. It is an error to unlock a key that is not held.
	Unlock(ctx context.Context, key string) error

	// TryLock attempts to acquire an exclusive lock without blocking.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RWLocker provides read-write locking semantics: many readers may hold a
// key concurrently, but a writer has exclusive access and excludes both
// readers and other writers.
type RWLocker interface {
	Locker

	// RLock acquires a shared read lock for key.
	RLock(ctx context.Context, key string, ttl time.Duration) error

	// RUnlock releases a shared read lock previously acquired with RLock.
	RUnlock(ctx context.Context, key string) error
}
