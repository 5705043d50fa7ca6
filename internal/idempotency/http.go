package idempotency

import (
	"net/http"

	"mic/pkg/platform/httputil"
	"mic/pkg/requestcontext"
)

// ReplayedHeader marks a response served from a stored idempotency record.
const ReplayedHeader = "Idempotent-Replayed"

// RequireKey checks the actor and Idempotency-Key header before any request
// body is read.
func RequireKey(r *http.Request) error {
	actor, _ := requestcontext.ActorFrom(r.Context())
	_, err := NewRequest(actor, r.Header.Get(HeaderKey), "")
	return err
}

// RequestFromHTTP builds a Request from the authenticated actor, the
// Idempotency-Key header and the hash of payload under operation.
func RequestFromHTTP(r *http.Request, operation string, payload any) (Request, error) {
	actor, _ := requestcontext.ActorFrom(r.Context())
	if err := RequireKey(r); err != nil {
		return Request{}, err
	}
	hash, err := RequestHash(operation, payload)
	if err != nil {
		return Request{}, err
	}
	return NewRequest(actor, r.Header.Get(HeaderKey), hash)
}

// WriteResult writes the stored or fresh response bytes unchanged.
func WriteResult(w http.ResponseWriter, res *Result) {
	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	httputil.WriteRaw(w, res.StatusCode, res.Body)
}
