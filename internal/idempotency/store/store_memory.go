package store

import (
	"context"
	"sync"
	"time"

	"mic/internal/idempotency/models"
	"mic/pkg/platform/sentinel"
	"mic/pkg/platform/tx"
)

// InMemoryStore keeps idempotency records in a map. Writes made inside a
// tx.MemoryRunner transaction are undone if it aborts.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.Key]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.Key]models.Record)}
}

func (s *InMemoryStore) InsertPending(ctx context.Context, rec *models.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Key]; exists {
		return false, nil
	}
	s.records[rec.Key] = *rec
	key := rec.Key
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.records, key)
	})
	return true, nil
}

func (s *InMemoryStore) Get(_ context.Context, key models.Key) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	return &rec, nil
}

func (s *InMemoryStore) TakeOverStale(ctx context.Context, key models.Key, requestHash string, staleBefore, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || rec.Finalized() || rec.RequestHash != requestHash || !rec.CreatedAt.Before(staleBefore) {
		return false, nil
	}
	prev := rec
	rec.CreatedAt = now
	s.records[key] = rec
	s.restoreOnRollback(ctx, key, prev)
	return true, nil
}

func (s *InMemoryStore) Finalize(ctx context.Context, key models.Key, fin models.Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Finalized() {
		return sentinel.ErrInvalidState
	}
	prev := rec
	at := fin.ResponseCreatedAt
	rec.StatusCode = fin.StatusCode
	rec.ResponseBody = append([]byte(nil), fin.Body...)
	rec.EventID = fin.EventID
	rec.AggregateType = fin.AggregateType
	rec.AggregateID = fin.AggregateID
	rec.ResponseCreatedAt = &at
	s.records[key] = rec
	s.restoreOnRollback(ctx, key, prev)
	return nil
}

func (s *InMemoryStore) restoreOnRollback(ctx context.Context, key models.Key, prev models.Record) {
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[key] = prev
	})
}
