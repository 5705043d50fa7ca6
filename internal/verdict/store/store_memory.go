package store

import (
	"context"
	"slices"
	"sync"

	"mic/internal/verdict/models"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
)

// InMemoryStore keeps verdict history per claim.
type InMemoryStore struct {
	mu       sync.RWMutex
	verdicts map[string][]models.Verdict
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{verdicts: make(map[string][]models.Verdict)}
}

func (s *InMemoryStore) Insert(ctx context.Context, v *models.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *v
	stored.ValidationIDs = slices.Clone(v.ValidationIDs)
	s.verdicts[v.ClaimID] = append(s.verdicts[v.ClaimID], stored)
	claimID, id := v.ClaimID, v.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.verdicts[claimID] = slices.DeleteFunc(s.verdicts[claimID], func(v models.Verdict) bool {
			return v.ID == id
		})
	})
	return nil
}

// Latest returns the newest verdict for claimID or sentinel.ErrNotFound.
func (s *InMemoryStore) Latest(ctx context.Context, claimID string) (*models.Verdict, error) {
	list, err := s.List(ctx, claimID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

// List returns up to limit verdicts for claimID, newest first.
func (s *InMemoryStore) List(_ context.Context, claimID string, limit int) ([]*models.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.verdicts[claimID]
	out := make([]*models.Verdict, 0, len(stored))
	for i := range stored {
		v := stored[i]
		v.ValidationIDs = slices.Clone(v.ValidationIDs)
		out = append(out, &v)
	}
	slices.SortFunc(out, func(a, b *models.Verdict) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
