package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// MemoryStorage keeps encoded recordings in a map. Values are stored in
// their persisted form, so a Load always returns an independent copy.
// Thread-safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string][]byte),
	}
}

func (s *MemoryStorage) Save(_ context.Context, name string, rec *recording.Recording) error {
	if err := checkSave(name, rec); err != nil {
		return err
	}
	b, err := Encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closed()
	}
	s.items[name] = b
	return nil
}

func (s *MemoryStorage) Load(_ context.Context, name string) (*recording.Recording, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	b, ok := s.items[name]
	isClosed := s.closed
	s.mu.RUnlock()

	if isClosed {
		return nil, closed()
	}
	if !ok {
		return nil, notFound(name)
	}
	return Decode(b)
}

func (s *MemoryStorage) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, closed()
	}

	out := make([]Info, 0, len(s.items))
	for name, b := range s.items {
		out = append(out, Info{Name: name, Size: int64(len(b))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return closed()
	}
	if _, ok := s.items[name]; !ok {
		return notFound(name)
	}
	delete(s.items, name)
	return nil
}

// Len returns the number of stored recordings.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close drops all recordings.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}
