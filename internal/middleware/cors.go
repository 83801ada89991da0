package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a CORS handler that admits the frontend origin with credentials.
func CORS(appURL string) func(next http.Handler) http.Handler {
	origins := []string{"http://localhost:*"}
	if appURL != "" {
		origins = append(origins, appURL)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Stripe-Signature"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}
