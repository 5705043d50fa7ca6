package models

import (
	"strings"
	"time"
	"unicode/utf8"

	dErrors "mic/pkg/domain-errors"
)

const (
	ListOFACSDN = "ofac_sdn"
	ListBISDPL  = "bis_dpl"

	// MaxMatchesPerList bounds the matches returned from each list.
	MaxMatchesPerList = 5

	MaxEntityNameLength = 512

	Source = "OFAC SDN and BIS DPL via trade.gov"
)

// Match is one sanctions-list entry whose name contains the screened entity.
type Match struct {
	List       string   `json:"list"`
	UID        string   `json:"uid"`
	Name       string   `json:"name"`
	EntityType string   `json:"entity_type,omitempty"`
	Programs   []string `json:"programs"`
}

// Result is the screening response. It is stored verbatim for replays.
type Result struct {
	ClaimID    string    `json:"claim_id"`
	Entity     string    `json:"entity"`
	Matched    bool      `json:"matched"`
	Matches    []Match   `json:"matches"`
	Detail     string    `json:"detail"`
	VerifiedAt time.Time `json:"verified_at"`
	Source     string    `json:"source"`
}

type ScreenRequest struct {
	EntityName string `json:"entity_name"`
}

func (r *ScreenRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.EntityName) == "":
		return dErrors.Validation(map[string]string{"entity_name": "is required"})
	case utf8.RuneCountInString(r.EntityName) > MaxEntityNameLength:
		return dErrors.Validation(map[string]string{"entity_name": "must be at most 512 characters"})
	}
	return nil
}
