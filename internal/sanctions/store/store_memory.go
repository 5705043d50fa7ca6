package store

import (
	"context"
	"strings"
	"sync"

	"mic/internal/sanctions/models"
	strutil "mic/pkg/platform/strings"
)

// InMemoryLists holds sanctions entries for tests and local runs.
type InMemoryLists struct {
	mu   sync.RWMutex
	ofac []models.Match
	bis  []models.Match
}

func NewInMemoryLists() *InMemoryLists {
	return &InMemoryLists{}
}

// Add appends an entry to the list named by m.List.
func (l *InMemoryLists) Add(m models.Match) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m.List == models.ListBISDPL {
		l.bis = append(l.bis, m)
		return
	}
	m.List = models.ListOFACSDN
	l.ofac = append(l.ofac, m)
}

func (l *InMemoryLists) SearchOFAC(_ context.Context, name string, limit int) ([]models.Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return search(l.ofac, name, limit), nil
}

func (l *InMemoryLists) SearchBIS(_ context.Context, name string, limit int) ([]models.Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return search(l.bis, name, limit), nil
}

func search(entries []models.Match, name string, limit int) []models.Match {
	needle := strings.ToUpper(name)
	var out []models.Match
	for _, m := range entries {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToUpper(m.Name), needle) {
			m.Programs = strutil.DedupeAndTrim(m.Programs)
			out = append(out, m)
		}
	}
	return out
}
