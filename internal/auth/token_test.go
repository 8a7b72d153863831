package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidate(t *testing.T) {
	ts := NewTokenService("test-secret-key")

	token, expiresAt, err := ts.Generate(42, "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.ID != "sess-1" {
		t.Errorf("ID = %q, want sess-1", claims.ID)
	}
}

func TestRejectExpiredToken(t *testing.T) {
	ts := NewTokenService("test-secret-key")

	token, _, err := ts.Generate(1, "sess", -time.Second)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() should reject expired token")
	}
}

func TestRejectTamperedToken(t *testing.T) {
	ts := NewTokenService("test-secret-key")

	token, _, err := ts.Generate(1, "sess", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	// change a character in the middle of the signature; the last base64url
	// character carries padding bits that may decode to the same bytes
	sigStart := strings.LastIndex(token, ".") + 1
	mid := sigStart + (len(token)-sigStart)/2
	b := token[mid]
	if b == 'A' {
		b = 'B'
	} else {
		b = 'A'
	}
	tampered := token[:mid] + string(b) + token[mid+1:]

	if _, err := ts.Validate(tampered); err == nil {
		t.Error("Validate() should reject tampered token")
	}
}

func TestRejectWrongSecret(t *testing.T) {
	token, _, err := NewTokenService("one").Generate(1, "sess", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := NewTokenService("two").Validate(token); err == nil {
		t.Error("Validate() should reject token signed with another secret")
	}
}

func TestRejectWrongSigningMethod(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "sess",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}

	if _, err := NewTokenService("test-secret-key").Validate(tokenString); err == nil {
		t.Error("Validate() should reject token with 'none' signing method")
	}
}

func TestRejectTokenWithoutSession(t *testing.T) {
	ts := NewTokenService("test-secret-key")

	token, _, err := ts.Generate(1, "", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() should reject token without session id")
	}
}
