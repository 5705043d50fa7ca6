package handler

import (
	"time"

	"mic/internal/claims/models"
)

type ValidationCreatedResponse struct {
	ValidationID string    `json:"validation_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type ValidationResponse struct {
	ValidationID string    `json:"validation_id"`
	SourceID     string    `json:"source_id"`
	Outcome      string    `json:"outcome"`
	Confidence   float64   `json:"confidence"`
	EvidenceRef  *string   `json:"evidence_ref"`
	CreatedAt    time.Time `json:"created_at"`
}

type ClaimValidationsResponse struct {
	Claim       *models.Claim        `json:"claim"`
	Validations []ValidationResponse `json:"validations"`
}

func ToClaimValidationsResponse(claim *models.Claim, validations []*models.Validation) ClaimValidationsResponse {
	out := ClaimValidationsResponse{
		Claim:       claim,
		Validations: make([]ValidationResponse, 0, len(validations)),
	}
	for _, v := range validations {
		resp := ValidationResponse{
			ValidationID: v.ID,
			SourceID:     v.SourceID,
			Outcome:      v.Outcome,
			Confidence:   v.Confidence,
			CreatedAt:    v.CreatedAt,
		}
		if v.EvidenceRef != "" {
			ref := v.EvidenceRef
			resp.EvidenceRef = &ref
		}
		out.Validations = append(out.Validations, resp)
	}
	return out
}
