package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := service.NewTokenVerifier("test-secret")

	token, err := v.Sign("seller-7", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Subject != "seller-7" {
		t.Errorf("expected subject seller-7, got %s", claims.Subject)
	}
	if claims.Role != "seller" {
		t.Errorf("expected role seller, got %s", claims.Role)
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := service.NewTokenVerifier("test-secret")

	expired, _ := v.Sign("seller-7", -time.Minute)
	foreign, _ := service.NewTokenVerifier("other-secret").Sign("seller-7", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, service.SellerClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, service.SellerClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "seller-7"},
	}).SignedString([]byte("test-secret"))
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, service.SellerClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "seller-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"no subject", noSubject},
		{"no expiry", noExpiry},
		{"wrong algorithm", wrongAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestTokenVerifier_Unconfigured(t *testing.T) {
	token, _ := service.NewTokenVerifier("test-secret").Sign("seller-7", time.Hour)

	_, err := service.NewTokenVerifier("").Verify(token)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
