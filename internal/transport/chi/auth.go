package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const authChallenge = `Bearer realm="productsearch"`

// probeRoutes answer unauthenticated GETs so load balancers and scrapers need no key.
var probeRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuth guards the search API with static API keys.
// No non-empty keys disables authentication.
func BearerAuth(apiKeys []string, l *zap.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = zap.NewNop()
	}
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := probeRoutes[r.URL.Path]; ok && r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason == "" && !knownKey(keys, token) {
				reason = "invalid api key"
			}
			if reason != "" {
				l.Debug("search request rejected",
					zap.String("path", r.URL.Path),
					zap.String("reason", reason),
				)
				w.Header().Set("WWW-Authenticate", authChallenge)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credentials; the scheme name is case-insensitive.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	return strings.TrimSpace(token), ""
}

// knownKey compares against every key in constant time.
func knownKey(keys [][]byte, token string) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return found == 1
}
