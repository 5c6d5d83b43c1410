package cart

import (
	"context"
	"sync"
)

// MemoryStores hands out per-session stores backed by process memory. It is
// used when no Redis address is configured.
type MemoryStores struct {
	mu       sync.Mutex
	sessions map[string]*MemoryStore
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{sessions: map[string]*MemoryStore{}}
}

func (m *MemoryStores) For(session string) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[session]
	if !ok {
		s = &MemoryStore{}
		m.sessions[session] = s
	}
	return s
}

type MemoryStore struct {
	mu      sync.Mutex
	items   []Item
	hasCart bool
	details Details
}

func (s *MemoryStore) Load(context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Items: append([]Item(nil), s.items...), Details: s.details}, nil
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item(nil), snap.Items...)
	s.hasCart = true
	s.details = snap.Details
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.hasCart = false
	return nil
}

// Persisted reports whether an items record currently exists.
func (s *MemoryStore) Persisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCart
}

func (m *MemoryStores) Func() StoreFunc {
	return func(session string) Store {
		return m.For(session)
	}
}
