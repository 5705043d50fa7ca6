package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

type stubResolver struct {
	actor requestcontext.Actor
	err   error
}

func (s stubResolver) Resolve(*http.Request) (requestcontext.Actor, error) {
	return s.actor, s.err
}

func TestRequireActor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("stores the resolved actor", func(t *testing.T) {
		var seen requestcontext.Actor
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = requestcontext.ActorFrom(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		mw := RequireActor(stubResolver{actor: requestcontext.Actor{Type: "service", ID: "ingest"}}, logger)

		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/claims", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "ingest", seen.ID)
	})

	t.Run("rejects unresolved credentials", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
		mw := RequireActor(stubResolver{err: dErrors.New(dErrors.CodeUnauthorized, "missing credentials")}, logger)

		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/claims", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})
}
