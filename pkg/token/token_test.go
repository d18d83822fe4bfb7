package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threshold := 5 * time.Minute

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"one hour left", signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), false},
		{"four minutes left", signed(t, jwt.MapClaims{"exp": now.Add(4 * time.Minute).Unix()}), true},
		{"exactly at threshold", signed(t, jwt.MapClaims{"exp": now.Add(threshold).Unix()}), true},
		{"already expired", signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}), true},
		{"no exp claim", signed(t, jwt.MapClaims{"sub": "u1"}), true},
		{"not a jwt", "opaque-token", true},
		{"empty", "", true},
		{"garbage payload", "eyJhbGciOiJIUzI1NiJ9.!!!.sig", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiresWithin(tt.token, threshold, now); got != tt.want {
				t.Errorf("ExpiresWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpiresWithin_IgnoresSignature(t *testing.T) {
	now := time.Now()
	tok := signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString([]byte("bogus"))

	if ExpiresWithin(tampered, 5*time.Minute, now) {
		t.Error("signature must not affect the expiry decision")
	}
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := ExpiresAt(signed(t, jwt.MapClaims{"exp": exp.Unix()}))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(exp) {
		t.Errorf("ExpiresAt() = %v, want %v", got, exp)
	}

	if _, err := ExpiresAt(signed(t, jwt.MapClaims{})); !errors.Is(err, ErrNoExpiry) {
		t.Errorf("ExpiresAt() without exp = %v, want ErrNoExpiry", err)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Error("Fingerprint(\"\") should be empty")
	}
	a := Fingerprint("token-a")
	if len(a) != fingerprintLen {
		t.Errorf("Fingerprint length = %d, want %d", len(a), fingerprintLen)
	}
	if a != Fingerprint("token-a") {
		t.Error("Fingerprint is not stable")
	}
	if a == Fingerprint("token-b") {
		t.Error("different tokens share a fingerprint")
	}
	if !strings.HasPrefix(Hash("token-a"), a) {
		t.Error("Fingerprint should be a prefix of Hash")
	}
}

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("Generate() returned invalid base64: %v", err)
	}
	if len(decoded) != DefaultLength {
		t.Errorf("decoded length = %d, want %d", len(decoded), DefaultLength)
	}

	b, err := GenerateBytes(16)
	if err != nil || len(b) != 16 {
		t.Errorf("GenerateBytes(16) = %d bytes, %v", len(b), err)
	}
}
