package lru

import "sync"

// Synced serializes access to a [Cache] with a single mutex.
type Synced[K comparable, V any] struct {
	mu    sync.Mutex
	cache *Cache[K, V]
}

// NewSynced creates a mutex-guarded cache holding at most capacity entries.
func NewSynced[K comparable, V any](capacity int) (*Synced[K, V], error) {
	c, err := New[K, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Synced[K, V]{cache: c}, nil
}

// OnEvict registers fn to run, under the lock, for each evicted entry.
func (s *Synced[K, V]) OnEvict(fn func(K, V)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.OnEvict(fn)
}

func (s *Synced[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(key)
}

func (s *Synced[K, V]) Put(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Put(key, value)
}

// GetOrPut returns the cached value for key, storing value first when key is absent.
// The lookup and insertion happen under one lock so racing pollers agree on a single value.
func (s *Synced[K, V]) GetOrPut(key K, value V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(key); ok {
		return v, true
	}
	s.cache.Put(key, value)
	return value, false
}

func (s *Synced[K, V]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Contains(key)
}

func (s *Synced[K, V]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Remove(key)
}

func (s *Synced[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *Synced[K, V]) Cap() int { return s.cache.Cap() }

func (s *Synced[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Keys()
}
