// Package auth builds a core.Session from the bearer token issued by the
// external auth provider. Tokens are HS256 JWTs signed with a shared secret;
// the provider's "sub" claim is the user id.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"budget/internal/core"
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// SessionFromToken validates a raw JWT and returns the session it encodes.
// Any parse, signature or expiry failure maps to ErrNotAuthenticated.
func (v *Verifier) SessionFromToken(tokenStr string) (core.Session, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return core.Session{}, core.ErrNotAuthenticated
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return core.Session{}, core.ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return core.Session{}, core.ErrNotAuthenticated
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)

	session := core.Session{UserID: sub, Email: email}
	if err := session.Validate(); err != nil {
		return core.Session{}, core.ErrNotAuthenticated
	}
	return session, nil
}

// SessionFromRequest extracts the session from the Authorization header.
func (v *Verifier) SessionFromRequest(r *http.Request) (core.Session, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return core.Session{}, core.ErrNotAuthenticated
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return core.Session{}, core.ErrNotAuthenticated
	}
	return v.SessionFromToken(parts[1])
}
