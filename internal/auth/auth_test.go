package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"budget/internal/core"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSessionFromTokenValid(t *testing.T) {
	v := NewVerifier(testSecret)
	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "user-123",
		"email": "u@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	session, err := v.SessionFromToken(tokenStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "user-123" || session.Email != "u@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestSessionFromTokenRejections(t *testing.T) {
	v := NewVerifier(testSecret)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})},
		{"expired", signToken(t, testSecret, jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing sub", signToken(t, testSecret, jwt.MapClaims{"email": "u@example.com"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.SessionFromToken(tc.token)
			if !errors.Is(err, core.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	}
}

func TestSessionFromRequest(t *testing.T) {
	v := NewVerifier(testSecret)
	tokenStr := signToken(t, testSecret, jwt.MapClaims{"sub": "u1"})

	req := httptest.NewRequest("GET", "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	session, err := v.SessionFromRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	// No header
	req = httptest.NewRequest("GET", "/api/categories", nil)
	if _, err := v.SessionFromRequest(req); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	// Malformed header
	req = httptest.NewRequest("GET", "/api/categories", nil)
	req.Header.Set("Authorization", "Token abc")
	if _, err := v.SessionFromRequest(req); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
