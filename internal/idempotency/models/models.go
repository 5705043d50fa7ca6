package models

import "time"

// Key scopes one logical write attempt to the actor that made it.
type Key struct {
	ActorType      string
	ActorID        string
	IdempotencyKey string
}

// Record is the stored state of an idempotency slot. A record is pending
// until Finalize stores a response; it is never modified afterwards.
type Record struct {
	Key
	RequestHash       string
	StatusCode        int
	ResponseBody      []byte
	EventID           string
	AggregateType     string
	AggregateID       string
	CreatedAt         time.Time
	ResponseCreatedAt *time.Time
}

// Finalized reports whether a response has been stored.
func (r *Record) Finalized() bool {
	return r.ResponseCreatedAt != nil
}

// Finalization is the response stored by the winning request.
type Finalization struct {
	StatusCode        int
	Body              []byte
	EventID           string
	AggregateType     string
	AggregateID       string
	ResponseCreatedAt time.Time
}
