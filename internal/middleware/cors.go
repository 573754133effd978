package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS wraps the HTTP handler with CORS headers for the configured front-end origins.
// An empty list or "*" allows any origin.
func CORS(h http.Handler, allowedOrigins []string) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}
	if len(allowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = allowedOrigins
		opts.AllowCredentials = true
	}
	return cors.New(opts).Handler(h)
}
