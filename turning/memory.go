package turning

import (
	"context"
	"sync"
)

type memEntry struct {
	mu  sync.Mutex
	rec Record
	set bool
}

// MemoryStore keeps records in process, one mutex per key.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry)}
}

func (s *MemoryStore) entry(key string) *memEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &memEntry{}
		s.entries[key] = e
	}
	return e
}

func (s *MemoryStore) Load(_ context.Context, key string) (Record, error) {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		return Initial(), nil
	}
	return e.rec, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, rec Record) error {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec, e.set = rec, true
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, prev, next Record) (bool, error) {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := Initial()
	if e.set {
		cur = e.rec
	}
	if !cur.Same(prev) {
		return false, nil
	}
	e.rec, e.set = next, true
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }
