package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session identifies the caller for one request.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// Anything shorter cannot be a real three-segment token.
const minTokenLength = 20

// Resolver extracts caller identity from a bearer token.
//
// With an empty secret it decodes the payload segment without checking the
// signature: tokens are issued by a separate trusted account service and the
// network path from it is private. Configure a secret to verify HS256
// signatures instead of trusting that boundary.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Resolver{secret: key}
}

// Resolve decodes the token and returns the caller's session.
// Pure function: no I/O, no side effects.
func (r *Resolver) Resolve(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("missing token")
	}
	if len(token) < minTokenLength {
		return nil, fmt.Errorf("token too short")
	}
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("malformed token: expected three segments")
	}

	claims := &jwt.RegisteredClaims{}
	if r.secret != nil {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return r.secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("verifying token: %w", err)
		}
		if !parsed.Valid {
			return nil, fmt.Errorf("invalid token")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decoding token: %w", err)
		}
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("token has no expiry")
	}
	if time.Now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token expired")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &Session{
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
