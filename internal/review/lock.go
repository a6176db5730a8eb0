package review

import "sync"

// keyedMutex hands out at most one lock per key at a time.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// TryLock claims key. The returned func releases it; ok is false when key
// is already held.
func (k *keyedMutex) TryLock(key string) (unlock func(), ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.held == nil {
		k.held = make(map[string]struct{})
	}
	if _, busy := k.held[key]; busy {
		return nil, false
	}
	k.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.held, key)
			k.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently locked.
func (k *keyedMutex) Held(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.held[key]
	return ok
}
