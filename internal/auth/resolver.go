package auth

import (
	"net/http"
	"strings"

	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-Api-Key"

// Resolver turns request credentials into an actor. The token service is
// optional; without it only API keys are accepted.
type Resolver struct {
	keys   *KeyRing
	tokens *TokenService
}

func NewResolver(keys *KeyRing, tokens *TokenService) *Resolver {
	return &Resolver{keys: keys, tokens: tokens}
}

// Resolve authenticates req. An API key takes precedence over a bearer token.
func (r *Resolver) Resolve(req *http.Request) (requestcontext.Actor, error) {
	if key := req.Header.Get(APIKeyHeader); key != "" {
		actor, ok := r.keys.Lookup(key)
		if !ok {
			return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid API key")
		}
		return actor, nil
	}
	if token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer "); ok && r.tokens != nil {
		return r.tokens.Validate(strings.TrimSpace(token))
	}
	return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing credentials")
}
