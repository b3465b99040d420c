package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// MemoryStore is an in-process Store used in tests and single-node setups
// without Redis. Blobs are kept serialized so parse behavior matches the
// Redis store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get returns the identity for a token, nil when absent or malformed.
func (s *MemoryStore) Get(_ context.Context, token string) (*domain.Identity, error) {
	s.mu.RLock()
	data, ok := s.blobs[token]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, nil
	}
	return &identity, nil
}

// Put stores the identity blob under the token.
func (s *MemoryStore) Put(_ context.Context, token string, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[token] = data
	s.mu.Unlock()
	return nil
}

// Delete removes the token's blob.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.blobs, token)
	s.mu.Unlock()
	return nil
}

// PutRaw stores an arbitrary blob, letting tests exercise malformed state.
func (s *MemoryStore) PutRaw(token string, data []byte) {
	s.mu.Lock()
	s.blobs[token] = data
	s.mu.Unlock()
}
