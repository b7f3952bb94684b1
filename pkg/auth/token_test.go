package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "storefront",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{Subject: "ops@example.com", Role: enums.StaffRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != enums.StaffRoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be generated")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		t.Fatalf("expected expiry in the future, got %v", claims.ExpiresAt)
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()
	now := time.Now()

	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"missing secret": {config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, AccessTokenPayload{Subject: "a", Role: enums.StaffRoleAdmin}},
		"missing issuer": {config.JWTConfig{Secret: "x", ExpirationMinutes: 1}, AccessTokenPayload{Subject: "a", Role: enums.StaffRoleAdmin}},
		"bad role":       {cfg, AccessTokenPayload{Subject: "a", Role: "owner"}},
		"blank subject":  {cfg, AccessTokenPayload{Subject: "  ", Role: enums.StaffRoleAdmin}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := MintAccessToken(tc.cfg, now, tc.payload); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{Subject: "a", Role: enums.StaffRoleFulfillment})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestParseAccessTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Subject: "a", Role: enums.StaffRoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wrongSecret := cfg
	wrongSecret.Secret = "other"
	if _, err := ParseAccessToken(wrongSecret, token); err == nil {
		t.Fatalf("expected signature error")
	}

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	if _, err := ParseAccessToken(wrongIssuer, token); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestParseAccessTokenRejectsUnknownRole(t *testing.T) {
	t.Parallel()
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		Role: "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected role error")
	}
}

func TestStaffRoleAllows(t *testing.T) {
	t.Parallel()
	if !enums.StaffRoleAdmin.Allows(enums.StaffRoleFulfillment) {
		t.Fatalf("admin should satisfy fulfillment routes")
	}
	if enums.StaffRoleFulfillment.Allows(enums.StaffRoleAdmin) {
		t.Fatalf("fulfillment should not satisfy admin routes")
	}
}
