package reststore

import "sync"

// keyLocks orders writes. Fetch takes the table exclusively; Save and Delete
// take it shared plus an exclusive lock on their own key, so operations on
// the same key run one after another and never interleave with a Fetch.
type keyLocks struct {
	all sync.RWMutex

	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (l *keyLocks) lockAll() func() {
	l.all.Lock()
	return l.all.Unlock
}

func (l *keyLocks) lockKey(key string) func() {
	l.all.RLock()

	l.mu.Lock()
	if l.keys == nil {
		l.keys = make(map[string]*keyLock)
	}
	kl := l.keys[key]
	if kl == nil {
		kl = &keyLock{}
		l.keys[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.keys, key)
		}
		l.mu.Unlock()

		l.all.RUnlock()
	}
}
