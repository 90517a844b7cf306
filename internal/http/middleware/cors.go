package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS lets the DocConsult web and clinic apps call the API from the browser.
// Entries may use one wildcard, e.g. "https://*.doconsult.in" for clinic
// subdomains, and "*" allows any origin. An empty list disables CORS.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		// Retry-After accompanies 429s from the rate limiter.
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	})
	return c.Handler
}
