package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT payload carried by locally issued tokens.
type Claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Local verifies HS256 tokens signed with a shared key. It doubles as the
// token issuer for dev setups and tests; production deployments point at an
// external identity service instead.
type Local struct {
	issuer string
	key    []byte
	ttl    time.Duration
}

// NewLocal creates a local HS256 verifier.
func NewLocal(issuer, key string, ttl time.Duration) *Local {
	return &Local{issuer: issuer, key: []byte(key), ttl: ttl}
}

// Issue signs a token for the given identity, expiring after the configured TTL.
func (l *Local) Issue(id Identity) (string, time.Time, error) {
	exp := time.Now().Add(l.ttl)
	claims := Claims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.issuer,
			Subject:   id.SubjectID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Verify validates a token and returns the identity it asserts.
func (l *Local) Verify(_ context.Context, credential string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return l.key, nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if l.issuer != "" && claims.Issuer != l.issuer {
		return Identity{}, errors.New("issuer mismatch")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("subject missing")
	}
	return Identity{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}, nil
}
