// Package auth carries the consumer principal from a bearer token into the
// request context.  Sign-in and token issuance for real users happen
// elsewhere; IssueToken exists for dev tooling and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenInvalid = errors.New("invalid token")

const (
	RoleOwner  = "owner"
	RoleViewer = "viewer"
)

// Principal is the authenticated consumer of the dashboard views.
type Principal struct {
	AccountID int64
	Role      string
}

type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"account_id"`
	Role      string `json:"role"`
}

// IssueToken signs an HS256 token for p valid for ttl.
func IssueToken(p Principal, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("account:%d", p.AccountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		AccountID: p.AccountID,
		Role:      p.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature and expiry and returns the principal.
func ParseToken(tokenString, secret string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrTokenInvalid
	}
	if claims.AccountID <= 0 {
		return Principal{}, fmt.Errorf("%w: missing account", ErrTokenInvalid)
	}
	if claims.Role == "" {
		return Principal{}, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}
	if !KnownRole(claims.Role) {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return Principal{AccountID: claims.AccountID, Role: claims.Role}, nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
