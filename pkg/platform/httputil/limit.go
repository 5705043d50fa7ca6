package httputil

import (
	"net/http"
	"strconv"

	dErrors "mic/pkg/domain-errors"
)

// ParseLimit reads the "limit" query parameter. Missing means def; values
// above max are clamped; anything non-numeric or below 1 is rejected.
func ParseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	if n > max {
		return max, nil
	}
	return n, nil
}
