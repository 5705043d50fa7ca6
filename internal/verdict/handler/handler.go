package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mic/internal/verdict/models"
	"mic/internal/verdict/service"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Service defines the verdict operations the handler needs.
type Service interface {
	Compute(ctx context.Context, claimID string) (*models.Verdict, error)
	Latest(ctx context.Context, claimID string) (*models.Verdict, error)
	List(ctx context.Context, claimID string, limit int) ([]*models.Verdict, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterWrites mounts endpoints that require an authenticated actor.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/claims/{claim_id}/verdicts/compute", h.HandleCompute)
}

// RegisterReads mounts the public read endpoints.
func (h *Handler) RegisterReads(r chi.Router) {
	r.Get("/claims/{claim_id}/verdicts/latest", h.HandleLatest)
	r.Get("/claims/{claim_id}/verdicts", h.HandleList)
}

// HandleCompute handles POST /claims/{claim_id}/verdicts/compute. Every call
// appends a new verdict.
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "claim_id")
	v, err := h.service.Compute(ctx, claimID)
	if err != nil {
		h.logger.WarnContext(ctx, "verdict compute failed",
			"trace_id", requestcontext.TraceID(ctx),
			"claim_id", claimID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "verdict computed",
		"trace_id", requestcontext.TraceID(ctx),
		"claim_id", claimID,
		"verdict_id", v.ID,
		"status", v.Status,
		"score", v.Score,
	)
	httputil.WriteJSON(w, http.StatusCreated, v)
}

// HandleLatest handles GET /claims/{claim_id}/verdicts/latest.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "claim_id")
	v, err := h.service.Latest(ctx, claimID)
	if errors.Is(err, service.ErrNoVerdict) {
		writeNoVerdict(w, r, claimID, "NO_VERDICT", "No verdict exists for this claim yet.")
		return
	}
	if err != nil {
		h.logInternal(ctx, "latest verdict failed", claimID, err)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// HandleList handles GET /claims/{claim_id}/verdicts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claim_id")
	limit, err := httputil.ParseLimit(r, DefaultLimit, MaxLimit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	list, err := h.service.List(r.Context(), claimID, limit)
	if err != nil {
		h.logInternal(r.Context(), "list verdicts failed", claimID, err)
		httputil.WriteError(w, r, err)
		return
	}
	if len(list) == 0 {
		writeNoVerdict(w, r, claimID, "NO_VERDICTS", "No verdicts exist for this claim yet.")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{ClaimID: claimID, Verdicts: list})
}

func (h *Handler) logInternal(ctx context.Context, msg, claimID string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"trace_id", requestcontext.TraceID(ctx),
		"claim_id", claimID,
		"error", err,
	)
}

type ListResponse struct {
	ClaimID  string            `json:"claim_id"`
	Verdicts []*models.Verdict `json:"verdicts"`
}

func writeNoVerdict(w http.ResponseWriter, r *http.Request, claimID, code, detail string) {
	httputil.WriteProblem(w, r, httputil.Problem{
		Status: http.StatusNotFound,
		Detail: detail,
		Code:   code,
		NextAction: &httputil.NextAction{
			Method: http.MethodPost,
			Path:   "/claims/" + claimID + "/verdicts/compute",
		},
	})
}
