package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParse_ValidHS256(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, "ops", []string{ScopeOptimize}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("expected subject ops, got %q", claims.Subject)
	}
	if !claims.HasScope(ScopeOptimize) || claims.HasScope(ScopeRunsRead) {
		t.Fatalf("unexpected scopes %v", claims.Scopes)
	}
}

func TestParse_RejectsUnexpectedAlgorithm(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "ops",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := Parse(secret, tokenStr); err == nil {
		t.Fatalf("expected parse to reject non-HS256 token")
	}
}

func TestParse_RejectsExpiredAndWrongSecret(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := Issue(secret, "ops", nil, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(secret, expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	valid, err := Issue(secret, "ops", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse([]byte("other-secret"), valid); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestClaims_NoScopesGrantsAll(t *testing.T) {
	c := &Claims{}
	if !c.HasScope(ScopeOptimize) || !c.HasScope(ScopeRunsRead) {
		t.Fatalf("expected unscoped token to grant every scope")
	}
}
