package testutil

import (
	"context"
	"net/http"
	"time"

	"mic/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actorType, actorID string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{Type: actorType, ID: actorID})
	return req.WithContext(ctx)
}

// WithTime pins the request time seen by handlers and services.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
