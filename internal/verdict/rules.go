// Package verdict turns the validations of a claim into a reproducible
// status and score.
package verdict

import (
	"slices"
	"time"

	claimsmodels "mic/internal/claims/models"
	sourcesmodels "mic/internal/sources/models"
	"mic/internal/verdict/models"
)

const (
	SupportedThreshold = 0.67
	RefutedThreshold   = 0.33

	// NeutralScore is reported when no validation carries weight.
	NeutralScore = 0.5
)

// Input is one validation joined with its source's authority tier. An empty
// tier means the source is unknown and is treated as unclassified.
type Input struct {
	ValidationID string
	Outcome      string
	Confidence   float64
	Tier         string
	CreatedAt    time.Time
}

// Result is the outcome of scoring one validation set.
type Result struct {
	Status        models.Status
	Score         float64
	ValidationIDs []string
	CountTotal    int
	CountScored   int
}

// Score evaluates inputs. It is a pure function of the set: input order does
// not matter, and the snapshot lists contributing validations oldest first.
//
// Validations from unclassified sources are excluded. Of the rest, "supports"
// contributes (1, confidence) and "refutes" contributes (0, confidence); other
// outcomes are counted as scored but add no weight pair.
func Score(inputs []Input) Result {
	ordered := slices.Clone(inputs)
	slices.SortFunc(ordered, func(a, b Input) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ValidationID < b.ValidationID:
			return -1
		case a.ValidationID > b.ValidationID:
			return 1
		}
		return 0
	})

	res := Result{CountTotal: len(ordered), ValidationIDs: []string{}}
	var numerator, denominator float64
	pairs := 0
	for _, in := range ordered {
		if !sourcesmodels.Classified(in.Tier) {
			continue
		}
		res.CountScored++

		var value float64
		switch in.Outcome {
		case claimsmodels.OutcomeSupports:
			value = 1
		case claimsmodels.OutcomeRefutes:
			value = 0
		default:
			continue
		}
		pairs++
		res.ValidationIDs = append(res.ValidationIDs, in.ValidationID)
		numerator += value * in.Confidence
		denominator += in.Confidence
	}

	if pairs == 0 {
		res.Score = NeutralScore
		res.Status = models.StatusInsufficientEvidence
		return res
	}
	// Pairs that all carry zero weight leave the ratio undefined; they still
	// count as evidence, so the neutral score goes through the thresholds.
	res.Score = NeutralScore
	if denominator > 0 {
		res.Score = numerator / denominator
	}
	res.Status = StatusFor(res.Score)
	return res
}

// StatusFor maps a score to a status using the fixed thresholds.
func StatusFor(score float64) models.Status {
	switch {
	case score >= SupportedThreshold:
		return models.StatusSupported
	case score <= RefutedThreshold:
		return models.StatusRefuted
	default:
		return models.StatusDisputed
	}
}
