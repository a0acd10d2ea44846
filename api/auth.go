/*
auth.go - JWT bearer authentication

PURPOSE:
  Parses HS256 bearer tokens carrying subject and roles, resolves a
  core.Principal and stashes it in the request context. Handlers pull
  the principal out and pass it EXPLICITLY into every domain call; the
  domain packages never read auth state from the context themselves.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hrline/leave-engine/core"
)

type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// Authenticator rejects requests without a valid bearer token and puts
// the resolved principal on the context.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			claims, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			principal := core.Principal{ID: claims.Subject}
			for _, role := range claims.Roles {
				principal.Roles = append(principal.Roles, core.Role(role))
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(r *http.Request) core.Principal {
	p, _ := r.Context().Value(principalKey{}).(core.Principal)
	return p
}

// GenerateToken signs an HS256 token for subject with the given roles.
func GenerateToken(secret []byte, subject string, roles []core.Role, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	for _, role := range roles {
		claims.Roles = append(claims.Roles, string(role))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies signature and expiry and returns the claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
