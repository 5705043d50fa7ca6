// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
//	actor, ok := requestcontext.ActorFrom(ctx)
//	traceID := requestcontext.TraceID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.Actor{Type: "service", ID: "ingest"})
package requestcontext

import (
	"context"
	"time"
)

type (
	actorKey       struct{}
	traceIDKey     struct{}
	requestTimeKey struct{}
)

// Actor identifies the authenticated caller on whose behalf a write happens.
type Actor struct {
	Type string
	ID   string
}

// IsZero reports whether no actor is set.
func (a Actor) IsZero() bool {
	return a.Type == "" || a.ID == ""
}

func (a Actor) String() string {
	return a.Type + ":" + a.ID
}

// -----------------------------------------------------------------------------
// Actor
// -----------------------------------------------------------------------------

// ActorFrom retrieves the authenticated actor from the context.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || a.IsZero() {
		return Actor{}, false
	}
	return a, true
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// -----------------------------------------------------------------------------
// Trace
// -----------------------------------------------------------------------------

// TraceID retrieves the request trace identifier from the context.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithTraceID injects a trace identifier into the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
