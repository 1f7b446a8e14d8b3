package keshavai

import (
	"context"
	"errors"
	"sync"
)

// Persisted document keys.
const (
	// KeyChatHistory holds the ChatHistory root document.
	KeyChatHistory = "chatHistory"
	// KeyGeneratedImages holds the generated-image log.
	KeyGeneratedImages = "generatedImages"
)

// ErrKeyNotFound is returned by Store.Get for an absent key.
var ErrKeyNotFound = errors.New("key not found in store")

// Store is the durable key-value sink for chat state. Values are
// opaque documents (JSON in practice). Implementations must survive
// process restarts where the backing medium allows it and must
// serialize concurrent writers internally.
type Store interface {
	// Get retrieves the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// InMemoryStore is an in-memory implementation of Store. State does
// not survive restarts; intended for tests and ephemeral sessions.
type InMemoryStore struct {
	documents map[string][]byte
	mu        sync.RWMutex
}

// NewInMemoryStore creates a new instance of InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		documents: make(map[string][]byte),
	}
}

// Get retrieves the value for key, or ErrKeyNotFound.
func (s *InMemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.documents[key]
	if !exists {
		return nil, ErrKeyNotFound
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Set stores value under key.
func (s *InMemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	s.documents[key] = copied
	return nil
}

// Delete removes key.
func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, key)
	return nil
}
