// Package lock provides keyed mutexes. The command layer keys them by user id
// so one user cannot run overlapping commands, and by chat id for admin commands.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// entry is a one-slot semaphore shared by the holder and waiters of a key.
type entry struct {
	sem  chan struct{}
	refs int // holders + waiters; the entry is dropped at zero
}

// Keyed is a set of mutexes addressed by key. Idle keys use no memory.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// NewKeyed creates a new Keyed instance.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{entries: make(map[K]*entry)}
}

// UserLock is the per-user lock used by the bot.
type UserLock = Keyed[int64]

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return NewKeyed[int64]()
}

// ChannelLock serialises administrative commands within one chat.
type ChannelLock = Keyed[int64]

// NewChannelLock creates a new ChannelLock instance.
func NewChannelLock() *ChannelLock {
	return NewKeyed[int64]()
}

func (k *Keyed[K]) acquire(key K) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed[K]) release(key K, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (k *Keyed[K]) Unlock(key K) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.sem:
		k.release(key, e)
	default:
	}
}

// TryLock acquires key without blocking and reports whether it succeeded.
func (k *Keyed[K]) TryLock(key K) bool {
	e := k.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		k.release(key, e)
		return false
	}
}

// LockContext blocks until key is held or ctx is done.
func (k *Keyed[K]) LockContext(ctx context.Context, key K) error {
	e := k.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

// WithLockTimeout runs fn while holding key, waiting at most timeout for it.
func (k *Keyed[K]) WithLockTimeout(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := k.LockContext(lctx, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrLockTimeout
		}
		return err
	}
	defer k.Unlock(key)
	return fn()
}

// Len returns the number of keys held or waited on.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
