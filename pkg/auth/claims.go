package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a staff JWT.
type AccessTokenPayload struct {
	Subject string
	Role    enums.StaffRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT accepted on admin routes.
type AccessTokenClaims struct {
	Role enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
