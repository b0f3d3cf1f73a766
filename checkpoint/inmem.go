package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mnemoai/mnemo-go-sdk/engine"
)

// MemoryStore is an in-process ThreadStore. Threads are stored as encoded
// JSON so Load always returns an independent copy, the same way the SQLite
// store behaves.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]byte)}
}

// Save upserts the thread.
func (s *MemoryStore) Save(_ context.Context, thread *engine.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", thread.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.ID] = data
	return nil
}

// Load retrieves a thread by ID.
func (s *MemoryStore) Load(_ context.Context, id string) (*engine.Thread, error) {
	s.mu.RLock()
	data, ok := s.threads[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrThreadNotFound, id)
	}

	var thread engine.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", id, err)
	}
	return &thread, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ engine.ThreadStore = (*MemoryStore)(nil)
