package models

import "time"

type Status string

const (
	StatusSupported            Status = "supported"
	StatusRefuted              Status = "refuted"
	StatusDisputed             Status = "disputed"
	StatusInsufficientEvidence Status = "insufficient_evidence"
)

// Verdict is one append-only scoring of a claim. ValidationIDs is the frozen
// snapshot of validations that contributed weight.
type Verdict struct {
	ID                    string    `json:"verdict_id"`
	ClaimID               string    `json:"claim_id"`
	Status                Status    `json:"status"`
	Score                 float64   `json:"score"`
	ValidationIDs         []string  `json:"validation_ids"`
	ValidationCountTotal  int       `json:"validation_count_total"`
	ValidationCountScored int       `json:"validation_count_scored"`
	CreatedAt             time.Time `json:"created_at"`
}
