// Package requesttime provides middleware for request-scoped time.
// All operations within a single HTTP request use the same "now" timestamp, so
// an entity row, its ledger event and its idempotency record agree on time.
package requesttime

import (
	"net/http"
	"time"

	"mic/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request, in UTC at
// microsecond precision to match what Postgres stores.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		ctx := requestcontext.WithTime(r.Context(), now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
