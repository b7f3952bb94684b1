package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// CartTokenHeader carries the guest cart token on storefront requests.
const CartTokenHeader = "X-Cart-Token"

// CORS returns middleware that applies the configured allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartTokenHeader, "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{CartTokenHeader, requestIDHeader},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           300,
	}).Handler
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
