package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// parseAllowedOrigins turns the configured origins into a set.
// In addition, localhost origins on any port are always allowed for development.
func parseAllowedOrigins(origins []string) map[string]struct{} {
	allowed := make(map[string]struct{})
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return allowed
}

// isLocalhostOrigin returns true if the origin is http(s)://localhost[:port].
func isLocalhostOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost"} {
		if origin == prefix || strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}

// isOriginAllowed checks whether a request origin should receive CORS headers.
func isOriginAllowed(origin string, allowed map[string]struct{}) bool {
	if origin == "" {
		return false
	}
	if isLocalhostOrigin(origin) {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// CORS returns the cross-origin middleware for browser-based capture
// stations. Configured origins and localhost on any port are allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := parseAllowedOrigins(origins)

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return isOriginAllowed(origin, allowed)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         86400,
	})
}
