package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "mic/pkg/domain-errors"
)

const (
	MaxContentLength     = 10000
	MaxEvidenceRefLength = 2048
)

// Outcomes with scoring meaning. Any other non-blank outcome is accepted and
// counted but not scored.
const (
	OutcomeSupports = "supports"
	OutcomeRefutes  = "refutes"
)

// Claim is immutable once created.
type Claim struct {
	ID        string    `json:"claim_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Validation is a third-party assessment of a claim.
type Validation struct {
	ID          string    `json:"validation_id"`
	ClaimID     string    `json:"claim_id"`
	SourceID    string    `json:"source_id"`
	Outcome     string    `json:"outcome"`
	Confidence  float64   `json:"confidence"`
	EvidenceRef string    `json:"evidence_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateClaimRequest struct {
	Content string `json:"content"`
}

// Validate checks the request; content is stored verbatim.
func (r *CreateClaimRequest) Validate() error {
	fields := map[string]string{}
	switch {
	case strings.TrimSpace(r.Content) == "":
		fields["content"] = "is required"
	case utf8.RuneCountInString(r.Content) > MaxContentLength:
		fields["content"] = "must be at most 10000 characters"
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields)
	}
	return nil
}

type CreateValidationRequest struct {
	ClaimID     string   `json:"claim_id"`
	SourceID    string   `json:"source_id"`
	Outcome     string   `json:"outcome"`
	Confidence  *float64 `json:"confidence"`
	EvidenceRef string   `json:"evidence_ref,omitempty"`
}

func (r *CreateValidationRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.ClaimID) == "" {
		fields["claim_id"] = "is required"
	}
	if strings.TrimSpace(r.SourceID) == "" {
		fields["source_id"] = "is required"
	}
	if strings.TrimSpace(r.Outcome) == "" {
		fields["outcome"] = "is required"
	}
	switch {
	case r.Confidence == nil:
		fields["confidence"] = "is required"
	case math.IsNaN(*r.Confidence) || *r.Confidence < 0 || *r.Confidence > 1:
		fields["confidence"] = "must be between 0 and 1"
	}
	if utf8.RuneCountInString(r.EvidenceRef) > MaxEvidenceRefLength {
		fields["evidence_ref"] = "must be at most 2048 characters"
	}
	if len(fields) > 0 {
		return dErrors.Validation(fields)
	}
	return nil
}
