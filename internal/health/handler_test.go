package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mic/internal/platform/logger"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHandleHealth(t *testing.T) {
	t.Run("all backends up", func(t *testing.T) {
		code, resp := serve(t, New(pingFunc(ok), checkFunc(ok), logger.Discard()))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, Response{Status: "ok", Database: "ok", Redis: "ok"}, resp)
	})

	t.Run("redis not configured", func(t *testing.T) {
		code, resp := serve(t, New(pingFunc(ok), nil, logger.Discard()))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "disabled", resp.Redis)
	})

	t.Run("redis down degrades without failing", func(t *testing.T) {
		code, resp := serve(t, New(pingFunc(ok), checkFunc(down), logger.Discard()))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Redis)
	})

	t.Run("database down is unavailable", func(t *testing.T) {
		code, resp := serve(t, New(pingFunc(down), checkFunc(ok), logger.Discard()))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "unavailable", resp.Database)
	})
}
