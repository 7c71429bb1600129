package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireInternalToken guards service-to-service endpoints with a shared
// token sent as X-Internal-Token. With an empty expected token the guard is
// disabled, which is the local development default.
func RequireInternalToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected != "" {
				provided := r.Header.Get("X-Internal-Token")
				if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
