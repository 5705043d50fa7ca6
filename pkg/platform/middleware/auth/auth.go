package auth

import (
	"log/slog"
	"net/http"

	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

// ActorResolver authenticates a request and names the acting principal.
type ActorResolver interface {
	Resolve(r *http.Request) (requestcontext.Actor, error)
}

// RequireActor rejects requests whose credentials do not resolve to an actor
// and stores the actor in the request context otherwise.
func RequireActor(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := resolver.Resolve(r)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized request",
					"error", err,
					"path", r.URL.Path,
					"trace_id", requestcontext.TraceID(ctx),
				)
				httputil.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}
