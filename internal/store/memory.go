package store

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is an in-memory DocumentStore for tests and dry runs
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]memoryDoc
	reasons []string
}

type memoryDoc struct {
	data    []byte
	version int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

// Get returns a copy of the named document
func (s *MemoryStore) Get(_ context.Context, name string) (Document, error) {
	if name == "" {
		return Document{}, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[name]
	if !ok {
		return Document{}, nil
	}

	data := make([]byte, len(doc.data))
	copy(data, doc.data)
	return Document{Data: data, Version: strconv.FormatInt(doc.version, 10)}, nil
}

// Put stores data when version matches the current token
func (s *MemoryStore) Put(_ context.Context, name string, data []byte, version, reason string) (string, error) {
	if name == "" {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := ""
	doc, ok := s.docs[name]
	if ok {
		current = strconv.FormatInt(doc.version, 10)
	}
	if current != version {
		return "", ErrVersionConflict
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	next := doc.version + 1
	s.docs[name] = memoryDoc{data: stored, version: next}
	s.reasons = append(s.reasons, reason)

	return strconv.FormatInt(next, 10), nil
}

// Reasons returns the write reasons in order (test helper)
func (s *MemoryStore) Reasons() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.reasons))
	copy(out, s.reasons)
	return out
}
