package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/muvance-crm/internal/users"
)

type contextKey string

const claimsKey contextKey = "operatorClaims"

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	ParseToken(token string) (*users.Claims, error)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket upgrades where browsers cannot set headers.
func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// BearerAuth rejects requests without a valid operator token.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("middleware: token verifier required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "Authentication token required")
				return
			}
			claims, err := verifier.ParseToken(token)
			if err != nil {
				writeMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after BearerAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			writeMessage(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the operator claims set by BearerAuth.
func ClaimsFromContext(ctx context.Context) (*users.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*users.Claims)
	return claims, ok && claims != nil
}
