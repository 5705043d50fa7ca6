package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mic/internal/ledger/models"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500

	// NextCursorHeader carries the cursor for the following page when more
	// events exist.
	NextCursorHeader = "X-Next-Cursor"
)

// Service lists events for one aggregate.
type Service interface {
	List(ctx context.Context, aggregateType, aggregateID string, after *models.Cursor, limit int) ([]*models.Event, error)
}

// Handler serves read access to the ledger.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events/{aggregate_type}/{aggregate_id}", h.HandleList)
}

// HandleList handles GET /events/{aggregate_type}/{aggregate_id}. Unknown
// aggregates yield an empty list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	aggregateType := chi.URLParam(r, "aggregate_type")
	aggregateID := chi.URLParam(r, "aggregate_id")

	limit, err := httputil.ParseLimit(r, DefaultLimit, MaxLimit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var after *models.Cursor
	if raw := r.URL.Query().Get("after"); raw != "" {
		c, err := models.ParseCursor(raw)
		if err != nil {
			httputil.WriteError(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid after cursor"))
			return
		}
		after = &c
	}

	events, err := h.service.List(ctx, aggregateType, aggregateID, after, limit+1)
	if err != nil {
		h.logger.ErrorContext(ctx, "list events failed",
			"trace_id", requestcontext.TraceID(ctx),
			"aggregate_type", aggregateType,
			"aggregate_id", aggregateID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	if len(events) > limit {
		events = events[:limit]
		w.Header().Set(NextCursorHeader, models.CursorAfter(events[limit-1]).String())
	}
	if events == nil {
		events = []*models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
