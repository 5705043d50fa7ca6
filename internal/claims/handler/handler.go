package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mic/internal/claims/models"
	"mic/internal/idempotency"
	dErrors "mic/pkg/domain-errors"
	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

const (
	DefaultValidationsLimit = 100
	MaxValidationsLimit     = 500

	createClaimOperation = "claims.create"
)

// Service defines the claim operations the handler needs.
type Service interface {
	CreateClaim(ctx context.Context, req models.CreateClaimRequest) (*models.Claim, string, error)
	CreateValidation(ctx context.Context, req models.CreateValidationRequest) (*models.Validation, error)
	GetClaim(ctx context.Context, claimID string) (*models.Claim, error)
	GetClaimWithValidations(ctx context.Context, claimID string, limit int) (*models.Claim, []*models.Validation, error)
}

// Idempotency runs a mutation at most once per actor and key.
type Idempotency interface {
	Execute(ctx context.Context, req idempotency.Request, fn idempotency.Func) (*idempotency.Result, error)
}

type Handler struct {
	service     Service
	idempotency Idempotency
	logger      *slog.Logger
}

func New(service Service, idem Idempotency, logger *slog.Logger) *Handler {
	return &Handler{service: service, idempotency: idem, logger: logger}
}

// RegisterWrites mounts endpoints that require an authenticated actor.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/claims", h.HandleCreateClaim)
	r.Post("/validations", h.HandleCreateValidation)
}

// RegisterReads mounts the public read endpoints.
func (h *Handler) RegisterReads(r chi.Router) {
	r.Get("/claims/{claim_id}", h.HandleGetClaim)
	r.Get("/claims/{claim_id}/validations", h.HandleListValidations)
}

// HandleCreateClaim handles POST /claims. Requests are deduplicated by the
// Idempotency-Key header.
func (h *Handler) HandleCreateClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := idempotency.RequireKey(r); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	var req models.CreateClaimRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	idemReq, err := idempotency.RequestFromHTTP(r, createClaimOperation, req)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res, err := h.idempotency.Execute(ctx, idemReq, func(ctx context.Context) (*idempotency.Response, error) {
		claim, eventID, err := h.service.CreateClaim(ctx, req)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(claim)
		if err != nil {
			return nil, fmt.Errorf("encode claim response: %w", err)
		}
		return &idempotency.Response{
			StatusCode:    http.StatusCreated,
			Body:          body,
			EventID:       eventID,
			AggregateType: "claim",
			AggregateID:   claim.ID,
		}, nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create claim failed",
			"trace_id", requestcontext.TraceID(ctx),
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	if !res.Replayed {
		h.logger.InfoContext(ctx, "claim created",
			"trace_id", requestcontext.TraceID(ctx),
			"claim_id", res.AggregateID,
			"event_id", res.EventID,
		)
	}
	idempotency.WriteResult(w, res)
}

// HandleCreateValidation handles POST /validations.
func (h *Handler) HandleCreateValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateValidationRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	v, err := h.service.CreateValidation(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create validation failed",
			"trace_id", requestcontext.TraceID(ctx),
			"claim_id", req.ClaimID,
			"error", err,
		)
		httputil.WriteError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "validation created",
		"trace_id", requestcontext.TraceID(ctx),
		"claim_id", v.ClaimID,
		"validation_id", v.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, ValidationCreatedResponse{
		ValidationID: v.ID,
		CreatedAt:    v.CreatedAt,
	})
}

// HandleGetClaim handles GET /claims/{claim_id}.
func (h *Handler) HandleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "claim_id")
	claim, err := h.service.GetClaim(ctx, claimID)
	if err != nil {
		h.logInternal(ctx, "get claim failed", claimID, err)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

// HandleListValidations handles GET /claims/{claim_id}/validations.
func (h *Handler) HandleListValidations(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseLimit(r, DefaultValidationsLimit, MaxValidationsLimit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	claimID := chi.URLParam(r, "claim_id")
	claim, validations, err := h.service.GetClaimWithValidations(ctx, claimID, limit)
	if err != nil {
		h.logInternal(ctx, "list validations failed", claimID, err)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToClaimValidationsResponse(claim, validations))
}

// logInternal logs uncoded failures; coded ones are caller errors and are
// visible in the access log.
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
