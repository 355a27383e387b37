package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RequireChannel rejects requests whose token does not cover the channel
// named by the URL parameter param.
func RequireChannel(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CanSendFor(r.Context(), chi.URLParam(r, param)) {
				writeJSONError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
