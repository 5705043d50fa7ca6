package store

import (
	"context"
	"slices"
	"sync"

	"mic/internal/claims/models"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
)

// InMemoryStore keeps claims and validations in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	claims      map[string]models.Claim
	validations map[string][]models.Validation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		claims:      make(map[string]models.Claim),
		validations: make(map[string][]models.Validation),
	}
}

func (s *InMemoryStore) CreateClaim(ctx context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[claim.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.claims[claim.ID] = *claim
	id := claim.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.claims, id)
	})
	return nil
}

func (s *InMemoryStore) GetClaim(_ context.Context, claimID string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) CreateValidation(ctx context.Context, v *models.Validation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[v.ClaimID]; !ok {
		return sentinel.ErrNotFound
	}
	s.validations[v.ClaimID] = append(s.validations[v.ClaimID], *v)
	claimID, id := v.ClaimID, v.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.validations[claimID] = slices.DeleteFunc(s.validations[claimID], func(v models.Validation) bool {
			return v.ID == id
		})
	})
	return nil
}

// ListValidations returns validations for claimID, newest first. A limit of
// zero or less returns all of them.
func (s *InMemoryStore) ListValidations(_ context.Context, claimID string, limit int) ([]*models.Validation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.validations[claimID]
	out := make([]*models.Validation, 0, len(stored))
	for i := range stored {
		v := stored[i]
		out = append(out, &v)
	}
	slices.SortFunc(out, func(a, b *models.Validation) int {
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
