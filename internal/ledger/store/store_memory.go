package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"mic/internal/ledger/models"
	"mic/pkg/platform/tx"
)

// InMemoryStore keeps events and their outbox state in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []*models.Event
	published map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[string]time.Time)}
}

func (s *InMemoryStore) Insert(ctx context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *ev
	stored.Payload = append([]byte(nil), ev.Payload...)
	s.events = append(s.events, &stored)
	id := ev.EventID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = slices.DeleteFunc(s.events, func(e *models.Event) bool { return e.EventID == id })
	})
	return nil
}

func (s *InMemoryStore) ListByAggregate(_ context.Context, aggregateType, aggregateID string, after *models.Cursor, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, ev := range s.events {
		if ev.AggregateType != aggregateType || ev.AggregateID != aggregateID {
			continue
		}
		if after != nil && !after.Before(ev) {
			continue
		}
		c := *ev
		out = append(out, &c)
	}
	sortAndTrim(&out, limit)
	return out, nil
}

// ClaimUnpublished returns up to limit events that have not been published,
// oldest first.
func (s *InMemoryStore) ClaimUnpublished(_ context.Context, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, ev := range s.events {
		if _, done := s.published[ev.EventID]; done {
			continue
		}
		c := *ev
		out = append(out, &c)
	}
	sortAndTrim(&out, limit)
	return out, nil
}

func (s *InMemoryStore) MarkPublished(ctx context.Context, eventIDs []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range eventIDs {
		s.published[id] = at
	}
	ids := slices.Clone(eventIDs)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range ids {
			delete(s.published, id)
		}
	})
	return nil
}

// Published reports whether eventID has been marked published.
func (s *InMemoryStore) Published(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.published[eventID]
	return ok
}

func sortAndTrim(events *[]*models.Event, limit int) {
	slices.SortFunc(*events, func(a, b *models.Event) int {
		switch {
		case models.Less(a, b):
			return -1
		case models.Less(b, a):
			return 1
		}
		return 0
	})
	if limit > 0 && len(*events) > limit {
		*events = (*events)[:limit]
	}
}
