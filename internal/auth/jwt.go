package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

// Claims are the bearer token claims. The subject is the actor id.
type Claims struct {
	ActorType string `json:"actor_type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 actor tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey string, issuer string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs a token for actor valid for ttl.
func (s *TokenService) Issue(actor requestcontext.Actor, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorType: actor.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate verifies tokenString and returns the actor it names.
func (s *TokenService) Validate(tokenString string) (requestcontext.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	actor := requestcontext.Actor{Type: claims.ActorType, ID: claims.Subject}
	if actor.IsZero() {
		return requestcontext.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token does not name an actor")
	}
	return actor, nil
}
