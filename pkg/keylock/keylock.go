package keylock

import (
	"context"
	"sync"
)

// Locker serializes work per logical key. Upload paths take the lock for a
// file's key around version-id allocation and the blob write, so two
// concurrent uploads to the same file can never compute the same next id.
type Locker interface {
	// Lock acquires the lock for key, blocking until it is available or ctx
	// is done. The returned function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// Mutex is an in-process Locker backed by one mutex per active key.
// Entries are dropped as soon as the last holder releases, so the map does
// not grow with the key space.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{} // buffered(1): token present means lock is free
	refs int
}

// NewMutex creates an in-process keyed mutex.
func NewMutex() *Mutex {
	return &Mutex{locks: make(map[string]*lockEntry)}
}

func (m *Mutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		entry.ch <- struct{}{}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case <-entry.ch:
		return func() {
			m.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
			entry.ch <- struct{}{}
		}, nil
	case <-ctx.Done():
		m.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
		return nil, ctx.Err()
	}
}
