package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check.
func BearerAuth(token, realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				challengeAuth(w, realm, "missing Authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				challengeAuth(w, realm, "invalid Authorization header format")
				return
			}

			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(token)) != 1 {
				invalidToken(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets conservative response headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// challengeAuth sends a 401 with a Bearer challenge for unauthenticated requests.
func challengeAuth(w http.ResponseWriter, realm, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
	http.Error(w, msg, http.StatusUnauthorized)
}

// invalidToken sends a 401 for requests with a wrong Bearer token.
func invalidToken(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
