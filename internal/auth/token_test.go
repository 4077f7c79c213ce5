package auth

import (
	"testing"
	"time"

	"github.com/soportec/helpdesk-core/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("unit-secret", 15)

	token, expiresAt, err := tm.GenerateToken("sup-1", domain.RoleSupport)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired at issuance")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "sup-1" || claims.Role != domain.RoleSupport {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 15)
	verifier := NewTokenManager("secret-b", 15)

	token, _, err := issuer.GenerateToken("sup-1", domain.RoleSupport)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	tm := NewTokenManager("unit-secret", 15)

	token, _, err := tm.GenerateToken("sup-1", domain.Role("root"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("unknown role claim accepted")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("unit-secret", 15)
	if _, err := tm.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
