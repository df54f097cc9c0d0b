package trading

import (
	"context"
	"sync"
)

// keyedLock serializes work per key without a global lock. Entries are
// reference counted and dropped when the last waiter leaves, so the table
// does not grow with the number of (user, ticker) pairs ever seen.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	token chan struct{}
	refs  int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's token is free or ctx expires, in which
// case it reports ErrBusy.
func (l *keyedLock) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{token: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
		return ErrBusy
	}
}

func (l *keyedLock) Release(key string) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		l.mu.Unlock()
		panic("trading: release of unheld lock key " + key)
	}
	<-e.token
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
