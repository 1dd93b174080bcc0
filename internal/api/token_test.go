package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("local-test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestPeekToken(t *testing.T) {
	exp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "student-42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	info, err := PeekToken(token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info.Subject != "student-42" {
		t.Fatalf("subject = %q", info.Subject)
	}
	if !info.ExpiresAt.Equal(exp) {
		t.Fatalf("expires = %v, want %v", info.ExpiresAt, exp)
	}

	if info.Expired(exp.Add(-time.Minute)) {
		t.Fatal("token reported expired before expiry")
	}
	if !info.Expired(exp.Add(time.Minute)) {
		t.Fatal("token not reported expired after expiry")
	}
}

func TestPeekTokenNoExpiry(t *testing.T) {
	token := signedToken(t, jwt.RegisteredClaims{Subject: "admin-1"})

	info, err := PeekToken(token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info.Expired(time.Now()) {
		t.Fatal("token without exp claim reported expired")
	}
}

func TestPeekTokenGarbage(t *testing.T) {
	if _, err := PeekToken("not.a.jwt"); err == nil {
		t.Fatal("expected parse error")
	}
}
