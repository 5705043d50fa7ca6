package models

import "time"

// TierUnclassified marks sources excluded from verdict scoring. Sources
// missing from reference data are treated the same way.
const TierUnclassified = "unclassified"

// Source is reference data maintained by batch ingestion.
type Source struct {
	ID            string    `json:"source_id"`
	Name          string    `json:"name"`
	AuthorityTier string    `json:"authority_tier"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Classified reports whether tier takes part in scoring.
func Classified(tier string) bool {
	return tier != "" && tier != TierUnclassified
}
