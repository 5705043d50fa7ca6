// Package health reports whether the service's backing stores are reachable.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

const checkTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker is satisfied by the platform Redis client.
type Checker interface {
	Health(ctx context.Context) error
}

type Response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type Handler struct {
	db     Pinger
	redis  Checker
	logger *slog.Logger
}

// New builds the health handler. A nil redis reports "disabled".
func New(db Pinger, redis Checker, logger *slog.Logger) *Handler {
	return &Handler{db: db, redis: redis, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

// HandleHealth answers 503 only when the database is down. Redis backs an
// advisory feature, so its failure is reported but not fatal.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ok", Database: "ok", Redis: "disabled"}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed",
			"trace_id", requestcontext.TraceID(ctx),
			"error", err,
		)
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Health(ctx); err != nil {
			h.logger.WarnContext(ctx, "redis health check failed",
				"trace_id", requestcontext.TraceID(ctx),
				"error", err,
			)
			resp.Redis = "unavailable"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	httputil.WriteJSON(w, status, resp)
}
