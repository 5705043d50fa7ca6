package store

import (
	"context"
	"sync"

	"mic/internal/sources/models"
)

// InMemoryStore holds source reference data for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	sources map[string]models.Source
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sources: make(map[string]models.Source)}
}

// Upsert stores or replaces a source.
func (s *InMemoryStore) Upsert(_ context.Context, src *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = *src
	return nil
}

// Tiers returns the authority tier of each known source in ids. Unknown ids
// are absent from the result.
func (s *InMemoryStore) Tiers(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if src, ok := s.sources[id]; ok {
			out[id] = src.AuthorityTier
		}
	}
	return out, nil
}
