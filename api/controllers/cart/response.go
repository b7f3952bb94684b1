package cart

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

// writeCart echoes the token header so clients can persist it from any cart response.
func writeCart(w http.ResponseWriter, status int, dto *cart.CartDTO) {
	if dto != nil && dto.Token != "" {
		w.Header().Set(middleware.CartTokenHeader, dto.Token)
	}
	responses.WriteSuccessStatus(w, status, dto)
}
