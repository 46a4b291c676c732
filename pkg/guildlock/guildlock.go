// Package guildlock provides fair, context-aware mutual exclusion keyed by
// guild ID.
//
// Unlike sync.Mutex, a Lock hands ownership to waiters strictly in the order
// they asked for it, so a second command in a guild always runs after the
// first one instead of racing it.
//
// Example usage:
//
//	locks := guildlock.NewMap()
//	err := locks.Do(ctx, guildID, func(ctx context.Context) error {
//	    return mutateQueue(ctx)
//	})
package guildlock

import (
	"context"
	"slices"
	"sync"
)

// Lock is a FIFO mutex. The zero value is unlocked.
type Lock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Lock blocks until the lock is held or ctx is done.
func (l *Lock) Lock(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.Index(l.waiters, ch); i >= 0 {
		l.waiters = slices.Delete(l.waiters, i, i+1)
		return ctx.Err()
	}
	// Ownership was passed to us while we were giving up; pass it on.
	l.release()
	return ctx.Err()
}

// Unlock releases the lock to the oldest waiter, if any.
func (l *Lock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release()
}

// Pending returns the number of callers waiting for the lock.
func (l *Lock) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *Lock) release() {
	if !l.held {
		panic("guildlock: unlock of unlocked lock")
	}
	if len(l.waiters) == 0 {
		l.held = false
		return
	}
	next := l.waiters[0]
	l.waiters = slices.Delete(l.waiters, 0, 1)
	close(next)
}

// Map holds one Lock per key.
type Map struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{locks: make(map[string]*Lock)}
}

// Get returns the lock for key, creating it on first use.
func (m *Map) Get(key string) *Lock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[key]
	if !ok {
		l = &Lock{}
		m.locks[key] = l
	}
	return l
}

// Do runs fn while holding the lock for key.
func (m *Map) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l := m.Get(key)
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock()
	return fn(ctx)
}
