package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Auth returns middleware that guards the resolver write path with a static
// shared secret, presented in the x-api-key header or as a Bearer token in
// the Authorization header. An empty secret disables the check and passes
// every request through.
//
// The configured secret may be stored as a bcrypt hash (a value starting
// with "$2") so the plaintext never sits in config files. Plaintext secrets
// are compared in constant time.
func Auth(secret string) func(http.Handler) http.Handler {
	hashed := strings.HasPrefix(secret, "$2")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing api key")
				return
			}
			if !secretMatches(secret, hashed, token) {
				writeUnauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(secret string, hashed bool, token string) bool {
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// extractToken reads the api key from the x-api-key header, falling back to
// a Bearer token in the Authorization header.
func extractToken(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return strings.TrimSpace(key)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
