package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// SellerClaims are the claims carried by seller access tokens. The seller
// ID is the registered subject.
type SellerClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 seller tokens minted by the identity
// provider.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token. Every failure is reported as
// *domain.ErrUnauthorized.
func (v *TokenVerifier) Verify(tokenString string) (*SellerClaims, error) {
	if len(v.secret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "token verification is not configured"}
	}
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing token"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &SellerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*SellerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// Sign mints a token for sellerID that Verify accepts. The service never
// issues tokens itself; they come from the identity provider, and Sign
// exists so tests can act as that provider.
func (v *TokenVerifier) Sign(sellerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SellerClaims{
		Role: "seller",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sellerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
