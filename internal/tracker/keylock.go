package tracker

import (
	"sort"
	"sync"
)

// keyLock serializes read-modify-write cycles per store key. Handlers that
// touch several keys acquire them in sorted order, so two handlers can never
// deadlock by locking the same pair in opposite orders.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

// acquire locks every key and returns the release function. Keys are
// deduplicated before locking.
func (k *keyLock) acquire(keys ...string) func() {
	seen := make(map[string]bool, len(keys))
	uniq := make([]string, 0, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, key := range uniq {
		mu := k.mutexFor(key)
		mu.Lock()
		held = append(held, mu)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (k *keyLock) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	mu, ok := k.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		k.locks[key] = mu
	}
	return mu
}
