package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/tictactoe-go/internal/api/apierr"
	"github.com/mcoot/tictactoe-go/internal/services/identity"
)

type contextKey string

const identityContextKey contextKey = "identity"

// TokenCookieName is checked when the request carries no bearer token
const TokenCookieName = "session_token"

// Auth creates authentication middleware
func Auth(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the credential token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(TokenCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetIdentity returns the authenticated identity from the request context
func GetIdentity(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(identityContextKey).(*identity.Identity)
	return id
}

// MustGetIdentity returns the authenticated identity or panics
func MustGetIdentity(ctx context.Context) *identity.Identity {
	id := GetIdentity(ctx)
	if id == nil {
		panic("no identity in context - auth middleware not applied?")
	}
	return id
}
