package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/schedulehub/p2p/internal/api/models"
)

type clientIDKey struct{}

// APIKeys maps API keys to the client names they identify.
type APIKeys map[string]string

// Authenticate creates middleware that requires a known API key, given as a
// bearer token or in X-API-Key. With no keys configured every request passes
// anonymously.
func Authenticate(keys APIKeys) func(http.Handler) http.Handler {
	byDigest := make(map[[sha256.Size]byte]string, len(keys))
	for key, client := range keys {
		byDigest[sha256.Sum256([]byte(key))] = client
	}

	return func(next http.Handler) http.Handler {
		if len(byDigest) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, detail := presentedKey(r)
			if detail != "" {
				writeUnauthorized(w, r, detail)
				return
			}

			client, ok := byDigest[sha256.Sum256([]byte(key))]
			if !ok {
				writeUnauthorized(w, r, "unknown api key")
				return
			}

			ctx := context.WithValue(r.Context(), clientIDKey{}, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// presentedKey returns the caller's key, or a reason it is unusable.
func presentedKey(r *http.Request) (key, detail string) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, ""
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing api key"
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", "invalid authorization header format"
	}

	key = strings.TrimSpace(authHeader[len(bearerPrefix):])
	if key == "" {
		return "", "missing bearer token"
	}
	return key, ""
}

// writeUnauthorized is local to avoid an import cycle with the response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetClientID returns the authenticated client name, or "" for anonymous
// requests.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}
	return ""
}
