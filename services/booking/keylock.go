package booking

import "sync"

// keyedLocks serializes workflow invocations per booking id so concurrent
// cancel/extend calls on the same booking never race. Independent bookings
// proceed in parallel. Entries are reference-counted and dropped when the
// last holder releases, so the map stays bounded by in-flight bookings.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// acquire locks the mutex for key and returns its unlock function.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
