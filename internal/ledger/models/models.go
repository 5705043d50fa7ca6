package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is one immutable ledger entry. EventType is "<aggregate_type>.<action>".
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	ActorType     string          `json:"actor_type"`
	ActorID       string          `json:"actor_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Cursor is a position in the (created_at, event_id) order of one aggregate.
type Cursor struct {
	CreatedAt time.Time
	EventID   string
}

// CursorAfter returns the cursor positioned at ev.
func CursorAfter(ev *Event) Cursor {
	return Cursor{CreatedAt: ev.CreatedAt, EventID: ev.EventID}
}

func (c Cursor) String() string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.EventID
}

// Before reports whether the cursor sorts strictly before ev.
func (c Cursor) Before(ev *Event) bool {
	if !ev.CreatedAt.Equal(c.CreatedAt) {
		return ev.CreatedAt.After(c.CreatedAt)
	}
	return ev.EventID > c.EventID
}

// ParseCursor parses "<RFC3339Nano>|<event_id>".
func ParseCursor(raw string) (Cursor, error) {
	ts, id, ok := strings.Cut(raw, "|")
	if !ok || id == "" {
		return Cursor{}, fmt.Errorf("cursor must be <created_at>|<event_id>")
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("cursor timestamp: %w", err)
	}
	return Cursor{CreatedAt: at.UTC(), EventID: id}, nil
}

// Less orders events by (created_at, event_id) ascending.
func Less(a, b *Event) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.EventID < b.EventID
}
