package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dtnitsch/article-analyzer/models"
)

// MemoryStore keeps bundles in process. Bundles are copied on the way in and out so callers
// never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, session string, b *models.ResultBundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	s.mu.Lock()
	s.bundles[session] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, session string) (*models.ResultBundle, error) {
	s.mu.RLock()
	data, ok := s.bundles[session]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeBundle(data)
}

func (s *MemoryStore) Clear(ctx context.Context, session string) error {
	s.mu.Lock()
	delete(s.bundles, session)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func decodeBundle(data []byte) (*models.ResultBundle, error) {
	var b models.ResultBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.Results == nil {
		b.Results = []models.AnalysisResult{}
	}
	if b.Errors == nil {
		b.Errors = []models.ProcessingError{}
	}
	return &b, nil
}
