package middleware

import (
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
)

// APIKeyHeader is the alternative to a bearer token.
const APIKeyHeader = "X-API-Key"

// KeyValidator decides whether a presented API key is accepted.
type KeyValidator interface {
	Valid(raw string) bool
}

// RequireAPIKey rejects requests without an accepted key with 401. The key is
// read from "Authorization: Bearer <key>" or APIKeyHeader.
func RequireAPIKey(keys KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			if !keys.Valid(key) {
				logger.FromContext(r.Context()).Warn("rejected api key",
					"path", r.URL.Path,
					"client_ip", ClientIP(r),
				)
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get(APIKeyHeader)
}
