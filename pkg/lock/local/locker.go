package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/progscrape/progscrape-sub000/pkg/lock"
)

var (
	// ErrUnlockUnknownKey is returned when attempting to unlock a key that is not locked.
	ErrUnlockUnknownKey = fmt.Errorf("local.Locker: unlock of unknown key")

	// ErrRUnlockUnknownKey is returned when attempting to runlock a key that is not locked.
	ErrRUnlockUnknownKey = fmt.Errorf("local.Locker: runlock of unknown key")
)

// Locker implements lock.Locker using per-key mutexes. A map of mutexes
// gives true per-key locking semantics; reference counting evicts a key's
// mutex from the map once nobody holds or waits on it.
type Locker struct {
	mu      sync.Mutex
	lockers map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refCount int
}

// NewLocker creates a new local exclusive locker.
func NewLocker() lock.Locker {
	return &Locker{lockers: make(map[string]*keyLock)}
}

func (l *Locker) getLock(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.lockers[key]
	if !ok {
		kl = &keyLock{}
		l.lockers[key] = kl
	}

	kl.refCount++

	return kl
}

func (l *Locker) releaseLock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.lockers[key]
	if !ok {
		return
	}

	kl.refCount--
	if kl.refCount == 0 {
		delete(l.lockers, key)
	}
}

// Lock acquires an exclusive lock. The ttl parameter is ignored.
func (l *Locker) Lock(_ context.Context, key string, _ time.Duration) error {
	kl := l.getLock(key)
	kl.Lock()

	return nil
}

// Unlock releases an exclusive lock for the given key.
func (l *Locker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.lockers[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnlockUnknownKey, key)
	}

	kl.Unlock()

	kl.refCount--
	if kl.refCount == 0 {
		delete(l.lockers, key)
	}

	return nil
}

// TryLock attempts to acquire an exclusive lock without blocking.
func (l *Locker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	kl := l.getLock(key)

	acquired := kl.TryLock()
	if !acquired {
		l.releaseLock(key)
	}

	return acquired, nil
}
