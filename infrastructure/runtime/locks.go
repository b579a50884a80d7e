package runtime

import (
	"sync"

	"pathway-engine/application/ports"
)

// mutationLocks serializes mutations per remote resource. Two concurrent
// updates to the same pathway apply one after the other; reads never take a
// lock.
type mutationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutationLocks() *mutationLocks {
	return &mutationLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for a resource and returns its release func
func (m *mutationLocks) acquire(kind ports.ResourceKind, id string) func() {
	key := string(kind) + ":" + id

	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
