package postlock

import (
	"context"
	"fmt"
	"sync"
)

// Locker serialises work per key. Acquire blocks until the lock is held or
// the context is cancelled, and returns a release function that must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Key builds the canonical lock key for a post.
func Key(postID int64) string {
	return fmt.Sprintf("postlock:%d", postID)
}

// MemoryLocker is a process-local Locker backed by per-key semaphores.
// The zero value is not usable; create instances with NewMemoryLocker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memLock
}

type memLock struct {
	sem  chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memLock)}
}

// Acquire blocks until the key is free or ctx is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &memLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.put(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.sem
			l.put(key, entry)
		})
	}
	return release, nil
}

// put drops one reference and removes the entry once nobody holds or waits
// on it, keeping the map from growing without bound.
func (l *MemoryLocker) put(key string, entry *memLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
