package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mic/internal/idempotency"
	"mic/internal/sanctions/models"
	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

const screenOperation = "sanctions.screen"

// Screener runs one screening inside the caller's transaction.
type Screener interface {
	Screen(ctx context.Context, req models.ScreenRequest) (*models.Result, string, error)
}

// Idempotency runs a mutation at most once per actor and key.
type Idempotency interface {
	Execute(ctx context.Context, req idempotency.Request, fn idempotency.Func) (*idempotency.Result, error)
}

type Handler struct {
	screener    Screener
	idempotency Idempotency
	logger      *slog.Logger
}

func New(screener Screener, idem Idempotency, logger *slog.Logger) *Handler {
	return &Handler{screener: screener, idempotency: idem, logger: logger}
}

// RegisterWrites mounts endpoints that require an authenticated actor.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/verify/sanctions", h.HandleScreen)
}

// HandleScreen handles POST /verify/sanctions.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := idempotency.RequireKey(r); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req models.ScreenRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	idemReq, err := idempotency.RequestFromHTTP(r, screenOperation, req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res, err := h.idempotency.Execute(ctx, idemReq, func(ctx context.Context) (*idempotency.Response, error) {
		result, eventID, err := h.screener.Screen(ctx, req)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode screening response: %w", err)
		}
		return &idempotency.Response{
			StatusCode:    http.StatusCreated,
			Body:          body,
			EventID:       eventID,
			AggregateType: "claim",
			AggregateID:   result.ClaimID,
		}, nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "sanctions screening failed",
			"trace_id", requestcontext.TraceID(ctx),
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	if !res.Replayed {
		h.logger.InfoContext(ctx, "entity screened",
			"trace_id", requestcontext.TraceID(ctx),
			"claim_id", res.AggregateID,
		)
	}
	idempotency.WriteResult(w, res)
}
