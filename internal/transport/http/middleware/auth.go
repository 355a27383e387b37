package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/notify-dapp/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := provider.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

// CanSendFor reports whether the request may act for channel. Requests
// without claims (auth disabled) may act for any channel.
func CanSendFor(ctx context.Context, channel string) bool {
	claims, ok := ClaimsFromContext(ctx)
	return !ok || claims.CanSendFor(channel)
}
